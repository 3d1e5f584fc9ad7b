// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteAdmin is the admin dashboard.
	RouteAdmin = "/admin"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RoutePassword is the password change route.
	RoutePassword = "/password"
	// RouteTheme is the theme switch route.
	RouteTheme = "/theme"
	// RouteCSRFToken returns a fresh CSRF token as JSON.
	RouteCSRFToken = "/csrf-token"
	// RouteMenus is the menus admin route.
	RouteMenus = "/menus"
	// RouteMenuSave is the menu save endpoint below RouteMenus.
	RouteMenuSave = "/save"
	// RouteParamName is the name parameter pattern.
	RouteParamName = "/{name}"
)

// Redirect targets.
const (
	redirectAdmin = RouteAdmin
	redirectLogin = RouteAdmin + RouteLogin
)

// Form field names.
const (
	fieldUsername        = "username"
	fieldPassword        = "password"
	fieldOldPassword     = "old_password"
	fieldNewPassword     = "new_password"
	fieldConfirmPassword = "confirm_password"
	fieldTheme           = "theme"
	fieldMenuName        = "menu_name"
	fieldMenuData        = "menu_data"
	fieldMenuFlat        = "menu_flat"
)

// JSON error types for the menu editor.
const (
	errorTypeValidation = "validation"
	errorTypeServer     = "server"
)
