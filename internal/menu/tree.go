// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package menu provides the navigation menu model: conversion between the
// nested form stored on disk and the flat indented form used by the editor,
// validation of submitted menus and HTML rendering.
package menu

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMenu is returned when submitted menu data is malformed.
var ErrInvalidMenu = errors.New("invalid menu data")

// Item is a menu entry with optional nested children.
type Item struct {
	Label    string `json:"label"`
	URL      string `json:"url"`
	Children []Item `json:"children,omitempty"`
}

// HasChildren reports whether the item has at least one child.
func (i Item) HasChildren() bool {
	return len(i.Children) > 0
}

// FlatItem is a menu entry with its depth in the tree, as shown by the
// drag and indent editor.
type FlatItem struct {
	Label  string `json:"label"`
	URL    string `json:"url"`
	Indent int    `json:"indent"`
}

// Flatten converts a nested menu into depth-first pre-order flat items
// starting at depth 0.
func Flatten(items []Item) []FlatItem {
	return flattenAt(items, 0, nil)
}

func flattenAt(items []Item, depth int, out []FlatItem) []FlatItem {
	for _, item := range items {
		out = append(out, FlatItem{Label: item.Label, URL: item.URL, Indent: depth})
		if len(item.Children) > 0 {
			out = flattenAt(item.Children, depth+1, out)
		}
	}
	return out
}

type node struct {
	item     FlatItem
	children []*node
}

// Nest rebuilds the tree from flat items. An item becomes a child of the
// nearest preceding item with a strictly smaller indent, or a root when
// there is none. Indent jumps greater than one are clamped that way rather
// than rejected.
func Nest(flat []FlatItem) []Item {
	var roots []*node
	var stack []*node

	for _, f := range flat {
		n := &node{item: f}
		for len(stack) > 0 && stack[len(stack)-1].item.Indent >= f.Indent {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
		}
		stack = append(stack, n)
	}

	return toItems(roots)
}

func toItems(nodes []*node) []Item {
	if len(nodes) == 0 {
		return nil
	}
	items := make([]Item, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, Item{
			Label:    n.item.Label,
			URL:      n.item.URL,
			Children: toItems(n.children),
		})
	}
	return items
}

// Validate decodes raw JSON into menu items, requiring every node to be an
// object with non-empty string label and url and, when present, an array of
// children that validates recursively. Nothing is returned unless the whole
// document is valid.
func Validate(raw []byte) ([]Item, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMenu, err)
	}
	list, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: menu must be an array", ErrInvalidMenu)
	}
	return validateList(list, "")
}

func validateList(list []any, at string) ([]Item, error) {
	if len(list) == 0 {
		return nil, nil
	}
	items := make([]Item, 0, len(list))
	for i, v := range list {
		pos := fmt.Sprintf("%s[%d]", at, i)
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not an object", ErrInvalidMenu, pos)
		}

		label, ok := obj["label"].(string)
		if !ok || strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("%w: %s needs a label", ErrInvalidMenu, pos)
		}
		url, ok := obj["url"].(string)
		if !ok || strings.TrimSpace(url) == "" {
			return nil, fmt.Errorf("%w: %s needs a url", ErrInvalidMenu, pos)
		}

		item := Item{Label: label, URL: url}
		if rawChildren, present := obj["children"]; present && rawChildren != nil {
			children, ok := rawChildren.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s children must be an array", ErrInvalidMenu, pos)
			}
			nested, err := validateList(children, pos+".children")
			if err != nil {
				return nil, err
			}
			item.Children = nested
		}
		items = append(items, item)
	}
	return items, nil
}

// ValidateItems applies the same rules as Validate to already decoded items.
func ValidateItems(items []Item) error {
	for i, item := range items {
		if strings.TrimSpace(item.Label) == "" {
			return fmt.Errorf("%w: [%d] needs a label", ErrInvalidMenu, i)
		}
		if strings.TrimSpace(item.URL) == "" {
			return fmt.Errorf("%w: [%d] needs a url", ErrInvalidMenu, i)
		}
		if err := ValidateItems(item.Children); err != nil {
			return err
		}
	}
	return nil
}

// IsActive reports whether a menu URL matches the current request path,
// either exactly or as a parent section. The root URL only matches itself.
func IsActive(url, currentPath string) bool {
	u := normalizePath(url)
	p := normalizePath(currentPath)
	if u == p {
		return true
	}
	return u != "/" && strings.HasPrefix(p, u+"/")
}

func normalizePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}
