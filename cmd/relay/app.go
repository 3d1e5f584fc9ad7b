// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/relay/internal/auth"
	"github.com/olegiv/relay/internal/config"
	"github.com/olegiv/relay/internal/content"
	"github.com/olegiv/relay/internal/handler"
	"github.com/olegiv/relay/internal/middleware"
	"github.com/olegiv/relay/internal/render"
	"github.com/olegiv/relay/internal/store"
	"github.com/olegiv/relay/internal/theme"
	"github.com/olegiv/relay/web"
)

// Cache lifetimes in seconds.
const (
	adminStaticMaxAge = 86400
	themeStaticMaxAge = 2592000
	assetsMaxAge      = 604800
)

// maxAdminBody bounds admin form and menu submissions.
const maxAdminBody = 1 << 20

// app holds the long-lived services behind the HTTP routes.
type app struct {
	cfg            *config.Config
	sessions       *scs.SessionManager
	crossOriginKey []byte

	users    *store.UserStore
	menus    *store.MenuStore
	settings *store.SettingsStore
	content  *content.Store
	themes   *theme.Manager
	renderer *render.Renderer
	guard    *auth.Guard
	csrf     *auth.CSRF
	throttle *middleware.LoginThrottle
}

func newApp(cfg *config.Config, sm *scs.SessionManager, crossOriginKey []byte) (*app, error) {
	a := &app{
		cfg:            cfg,
		sessions:       sm,
		crossOriginKey: crossOriginKey,
		users:          store.NewUserStore(cfg.ConfigDir()),
		menus:          store.NewMenuStore(cfg.ConfigDir()),
		settings:       store.NewSettingsStore(cfg.ConfigDir()),
		content:        content.NewStore(cfg.ContentDir(), content.Options{SafeMode: cfg.ContentSafeMode}),
		csrf:           auth.NewCSRF(),
	}
	a.guard = auth.NewGuard(a.users)
	a.themes = theme.NewManager(cfg.ThemesDir(), a.settings, slog.Default())
	a.themes.SetBasePath(cfg.BasePath)

	if err := a.themes.Validate(a.themes.Active()); err != nil {
		slog.Warn("active theme is not usable", "category", "theme", "theme", a.themes.Active(), "error", err)
	}

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return nil, fmt.Errorf("getting templates fs: %w", err)
	}
	a.renderer, err = render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sm,
		SiteName:       func() string { return a.settings.Load().SiteName },
		BasePath:       cfg.BasePath,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing renderer: %w", err)
	}

	if cfg.LoginThrottleEnabled() {
		a.throttle = middleware.NewLoginThrottle(cfg.LoginIPRate, cfg.LoginIPBurst)
		slog.Info("per-IP login throttle enabled", "rate", cfg.LoginIPRate, "burst", cfg.LoginIPBurst)
	}
	return a, nil
}

func (a *app) close() {
	if a.throttle != nil {
		a.throttle.Close()
	}
	if err := a.themes.Close(); err != nil {
		slog.Error("error closing theme watcher", "error", err)
	}
}

// routes builds the HTTP handler tree.
func (a *app) routes() http.Handler {
	isDev := a.cfg.IsDevelopment()

	frontendHandler := handler.NewFrontendHandler(a.content, a.themes, a.menus, a.settings, a.renderer)
	authHandler := handler.NewAuthHandler(a.renderer, a.sessions, a.guard, a.csrf)
	adminHandler := handler.NewAdminHandler(handler.AdminDeps{
		Renderer:       a.renderer,
		SessionManager: a.sessions,
		Guard:          a.guard,
		CSRF:           a.csrf,
		Menus:          a.menus,
		Users:          a.users,
		Content:        a.content,
		Themes:         a.themes,
	})
	menusHandler := handler.NewMenusHandler(a.renderer, a.sessions, a.csrf, a.menus, frontendHandler)
	staticHandler := handler.NewStaticHandler(a.cfg.AssetsDir(), a.themes, frontendHandler.NotFound)
	seoHandler := handler.NewSEOHandler(a.content, handler.SEOConfig{
		SiteURL:     a.cfg.SiteURL,
		BasePath:    a.cfg.BasePath,
		DisallowAll: a.cfg.RobotsDisallowAll,
	})
	healthHandler := handler.NewHealthHandler(handler.HealthConfig{
		SessionManager: a.sessions,
		Guard:          a.guard,
		Themes:         a.themes,
		ContentDir:     a.cfg.ContentDir(),
		ConfigDir:      a.cfg.ConfigDir(),
	})

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(isDev)))
	r.Use(a.sessions.LoadAndSave)

	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get("/robots.txt", seoHandler.Robots)
	r.Get("/sitemap.xml", seoHandler.Sitemap)

	r.With(middleware.StaticCache(assetsMaxAge)).Get("/assets/*", staticHandler.Assets)
	r.With(middleware.StaticCache(themeStaticMaxAge)).Get("/themes/{theme}/static/*", staticHandler.ThemeStatic)

	adminStatic, err := fs.Sub(web.Static, "static/dist")
	if err != nil {
		panic(fmt.Sprintf("embedded admin assets missing: %v", err))
	}

	r.Route(handler.RouteAdmin, func(r chi.Router) {
		r.With(middleware.StaticCache(adminStaticMaxAge)).
			Handle("/static/*", http.StripPrefix(a.renderer.URL("/admin/static/"), http.FileServer(http.FS(adminStatic))))

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoCache)
			r.Use(middleware.CrossOrigin(middleware.DefaultCrossOriginConfig(a.crossOriginKey, isDev)))
			r.Use(chimw.RequestSize(maxAdminBody))
			r.Use(middleware.RequireCSRF(a.sessions, a.csrf))

			r.Get(handler.RouteLogin, authHandler.LoginForm)
			if a.throttle != nil {
				r.With(a.throttle.Middleware()).Post(handler.RouteLogin, authHandler.Login)
			} else {
				r.Post(handler.RouteLogin, authHandler.Login)
			}
			r.Post(handler.RouteLogout, authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(a.sessions, a.guard, a.renderer.URL(handler.RouteAdmin+handler.RouteLogin)))

				r.Get(handler.RouteRoot, adminHandler.Dashboard)
				r.Get(handler.RouteCSRFToken, adminHandler.CSRFToken)
				r.Post(handler.RoutePassword, adminHandler.ChangePassword)
				r.With(middleware.RequireAdmin()).Post(handler.RouteTheme, adminHandler.ChangeTheme)

				r.Route(handler.RouteMenus, func(r chi.Router) {
					r.Post(handler.RouteMenuSave, menusHandler.Save)
					r.Get(handler.RouteParamName, menusHandler.Edit)
				})
			})
		})
	})

	r.Get(handler.RouteRoot, frontendHandler.Page)
	r.Get("/*", frontendHandler.Page)

	r.NotFound(frontendHandler.NotFound)

	return a.mount(r)
}

// mount serves site under the configured base path. The domain root is sent
// to the site; anything else outside it is a plain 404.
func (a *app) mount(site chi.Router) http.Handler {
	base := a.cfg.BasePath
	if base == "" {
		return site
	}

	root := chi.NewRouter()
	root.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, base+"/", http.StatusFound)
	})
	root.Mount(base, site)
	root.NotFound(http.NotFound)
	return root
}
