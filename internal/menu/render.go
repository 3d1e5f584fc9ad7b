// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package menu

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"sync"

	"github.com/olegiv/relay/internal/util"
)

// Location is the page a menu is rendered for.
type Location struct {
	// Path is the current path relative to the site root, e.g. "/about".
	Path string
	// Base is put in front of root-relative item URLs; empty when the site
	// is served from the domain root.
	Base string
}

// Renderer turns a menu tree into HTML. Themes pick a renderer by name
// through their metadata.
type Renderer interface {
	// Render produces the nested list used for sidebars.
	Render(items []Item, loc Location) template.HTML
	// RenderHeader produces the horizontal header navigation.
	RenderHeader(items []Item, loc Location) template.HTML
}

// DefaultRendererName is used when a theme does not ask for a renderer.
const DefaultRendererName = "default"

var (
	renderersMu sync.RWMutex
	renderers   = map[string]Renderer{}
)

func init() {
	Register(DefaultRendererName, DefaultRenderer{})
	Register("uswds", USWDSRenderer{})
}

// Register makes a renderer available under name, replacing any previous one.
func Register(name string, r Renderer) {
	renderersMu.Lock()
	defer renderersMu.Unlock()
	renderers[name] = r
}

// RendererFor returns the renderer registered under name, falling back to
// the default renderer for empty or unknown names.
func RendererFor(name string) Renderer {
	renderersMu.RLock()
	defer renderersMu.RUnlock()
	if r, ok := renderers[name]; ok {
		return r
	}
	if name != "" {
		slog.Warn("unknown menu renderer, using default", "renderer", name)
	}
	return renderers[DefaultRendererName]
}

// view is the template model for one menu entry.
type view struct {
	Label     string
	URL       string
	Active    bool
	SectionID string
	Sub       *level
}

type level struct {
	Depth int
	Items []view
}

func buildLevel(items []Item, loc Location, depth int) *level {
	if len(items) == 0 {
		return nil
	}
	lv := &level{Depth: depth, Items: make([]view, 0, len(items))}
	for _, item := range items {
		lv.Items = append(lv.Items, view{
			Label:  item.Label,
			URL:    util.URLWithBase(loc.Base, item.URL),
			Active: IsActive(item.URL, loc.Path),
			Sub:    buildLevel(item.Children, loc, depth+1),
		})
	}
	return lv
}

func execute(t *template.Template, name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("failed to render menu", "template", name, "error", err)
		return ""
	}
	// Output comes from html/template, so it is already escaped.
	return template.HTML(buf.String()) // #nosec G203
}

var defaultTemplates = template.Must(template.New("default").Parse(
	`{{define "list"}}<ul class="relay-menu relay-menu-depth-{{.Depth}}">` +
		`{{range .Items}}<li class="relay-menu-item{{if .Active}} active{{end}}{{if .Sub}} has-children{{end}}">` +
		`<a href="{{.URL}}">{{.Label}}</a>{{if .Sub}}{{template "list" .Sub}}{{end}}</li>{{end}}</ul>{{end}}` +
		`{{define "header"}}<nav class="relay-header-menu"><ul>` +
		`{{range .Items}}<li{{if .Active}} class="active"{{end}}><a href="{{.URL}}">{{.Label}}</a></li>{{end}}` +
		`</ul></nav>{{end}}`,
))

// DefaultRenderer produces plain nested lists with relay-menu classes.
type DefaultRenderer struct{}

// Render implements Renderer.
func (DefaultRenderer) Render(items []Item, loc Location) template.HTML {
	lv := buildLevel(items, loc, 0)
	if lv == nil {
		return ""
	}
	return execute(defaultTemplates, "list", lv)
}

// RenderHeader implements Renderer. Only top-level items are shown.
func (DefaultRenderer) RenderHeader(items []Item, loc Location) template.HTML {
	lv := buildLevel(items, loc, 0)
	if lv == nil {
		return ""
	}
	return execute(defaultTemplates, "header", lv)
}

var uswdsTemplates = template.Must(template.New("uswds").Parse(
	`{{define "list"}}<ul class="usa-sidenav{{if gt .Depth 0}}__sublist{{end}}">` +
		`{{range .Items}}<li class="usa-sidenav__item"><a href="{{.URL}}"{{if .Active}} class="usa-current"{{end}}>{{.Label}}</a>` +
		`{{if .Sub}}{{template "list" .Sub}}{{end}}</li>{{end}}</ul>{{end}}` +
		`{{define "header"}}<nav aria-label="Primary navigation" class="usa-nav"><ul class="usa-nav__primary usa-accordion">` +
		`{{range .Items}}<li class="usa-nav__primary-item">{{if .Sub}}` +
		`<button class="usa-accordion__button usa-nav__link{{if .Active}} usa-current{{end}}" aria-expanded="false" aria-controls="{{.SectionID}}"><span>{{.Label}}</span></button>` +
		`<ul id="{{.SectionID}}" class="usa-nav__submenu">{{range .Sub.Items}}` +
		`<li class="usa-nav__submenu-item"><a href="{{.URL}}"{{if .Active}} class="usa-current"{{end}}>{{.Label}}</a></li>{{end}}</ul>` +
		`{{else}}<a class="usa-nav__link{{if .Active}} usa-current{{end}}" href="{{.URL}}"><span>{{.Label}}</span></a>{{end}}</li>{{end}}` +
		`</ul></nav>{{end}}`,
))

// USWDSRenderer produces U.S. Web Design System navigation markup.
type USWDSRenderer struct{}

// Render implements Renderer.
func (USWDSRenderer) Render(items []Item, loc Location) template.HTML {
	lv := buildLevel(items, loc, 0)
	if lv == nil {
		return ""
	}
	return execute(uswdsTemplates, "list", lv)
}

// RenderHeader implements Renderer. Items with children become accordion
// buttons with numbered section ids; deeper levels are not shown.
func (USWDSRenderer) RenderHeader(items []Item, loc Location) template.HTML {
	lv := buildLevel(items, loc, 0)
	if lv == nil {
		return ""
	}
	section := 0
	for i := range lv.Items {
		if lv.Items[i].Sub != nil {
			section++
			lv.Items[i].SectionID = fmt.Sprintf("nav-section-%d", section)
		}
	}
	return execute(uswdsTemplates, "header", lv)
}
