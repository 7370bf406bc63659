package server

// Route path constants
// All console routes are defined here to ensure consistency and prevent typos
const (
	// Session & auth
	RouteSession        = "/api/session"
	RouteLogin          = "/api/auth/login"
	RouteSignup         = "/api/auth/signup"
	RouteLogout         = "/api/auth/logout"
	RouteGoogleLogin    = "/api/auth/google"
	RouteGoogleCallback = "/google-callback"

	// Storefront
	RouteCourses    = "/api/courses"
	RouteCourse     = "/api/courses/{id}"
	RouteCategories = "/api/categories"
	RouteCart       = "/api/cart"
	RouteCartCount  = "/api/cart/count"
	RouteCartItem   = "/api/cart/{id}"
	RouteCheckout   = "/api/checkout"

	// Admin console, gated
	RouteDashboardSummary  = "/dashboard/summary"
	RouteDashboardCourses  = "/dashboard/courses"
	RouteDashboardCourse   = "/dashboard/courses/{id}"
	RouteDashboardEdit     = "/dashboard/courses/{id}/edit"
	RouteWizards           = "/dashboard/wizards"
	RouteWizard            = "/dashboard/wizards/{id}"
	RouteWizardFields      = "/dashboard/wizards/{id}/fields"
	RouteWizardImage       = "/dashboard/wizards/{id}/image"
	RouteWizardMetadata    = "/dashboard/wizards/{id}/metadata"
	RouteWizardContents    = "/dashboard/wizards/{id}/contents"
	RouteWizardBack        = "/dashboard/wizards/{id}/back"
	RouteWizardRows        = "/dashboard/wizards/{id}/rows"
	RouteWizardRow         = "/dashboard/wizards/{id}/rows/{row}"
	RouteWizardRowSave     = "/dashboard/wizards/{id}/rows/{row}/save"
	RouteWizardSave        = "/dashboard/wizards/{id}/save"
	RouteDashboardTeachers = "/dashboard/instructors"
	RouteDashboardTeacher  = "/dashboard/instructors/{id}"

	// Browser destinations
	PathHome         = "/"
	PathLogin        = "/login"
	PathThanks       = "/thanks"
	PathAdminCourses = "/dashboard/courses"
)
