package server

import "net/http"

func (s *Server) initRoutes() {
	public := func(h http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, s.APIMiddleware()...)
	}
	dashboard := func(h http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, s.APIMiddleware(s.RequireAdmin())...)
	}

	// CORS preflight for every path
	s.RegisterRouteHandler("OPTIONS /", public(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	// SESSION
	s.RegisterRouteHandler("GET "+RouteSession, public(s.SessionHandler()))
	s.RegisterRouteHandler("POST "+RouteLogin, public(s.LoginHandler()))
	s.RegisterRouteHandler("POST "+RouteSignup, public(s.SignupHandler()))
	s.RegisterRouteHandler("POST "+RouteLogout, public(s.LogoutHandler()))
	s.RegisterRouteHandler("GET "+RouteGoogleLogin, public(s.GoogleLoginHandler()))
	s.RegisterRouteHandler("GET "+RouteGoogleCallback, public(s.GoogleCallbackHandler()))

	// STOREFRONT
	s.RegisterRouteHandler("GET "+RouteCourses, public(s.CoursesHandler()))
	s.RegisterRouteHandler("GET "+RouteCourse, public(s.CourseHandler()))
	s.RegisterRouteHandler("GET "+RouteCategories, public(s.CategoriesHandler()))
	s.RegisterRouteHandler("GET "+RouteCart, public(s.CartHandler()))
	s.RegisterRouteHandler("POST "+RouteCart, public(s.AddToCartHandler()))
	s.RegisterRouteHandler("GET "+RouteCartCount, public(s.CartCountHandler()))
	s.RegisterRouteHandler("DELETE "+RouteCartItem, public(s.RemoveFromCartHandler()))
	s.RegisterRouteHandler("POST "+RouteCheckout, public(s.CheckoutHandler()))

	// DASHBOARD
	s.RegisterRouteHandler("GET "+RouteDashboardSummary, dashboard(s.DashboardSummaryHandler()))
	s.RegisterRouteHandler("GET "+RouteDashboardCourses, dashboard(s.AdminCoursesHandler()))
	s.RegisterRouteHandler("DELETE "+RouteDashboardCourse, dashboard(s.DeleteCourseHandler()))
	s.RegisterRouteHandler("POST "+RouteDashboardEdit, dashboard(s.EditCourseHandler()))

	s.RegisterRouteHandler("GET "+RouteDashboardTeachers, dashboard(s.InstructorsHandler()))
	s.RegisterRouteHandler("POST "+RouteDashboardTeachers, dashboard(s.CreateInstructorHandler()))
	s.RegisterRouteHandler("PUT "+RouteDashboardTeacher, dashboard(s.UpdateInstructorHandler()))
	s.RegisterRouteHandler("DELETE "+RouteDashboardTeacher, dashboard(s.DeleteInstructorHandler()))

	// COURSE WIZARD
	s.RegisterRouteHandler("POST "+RouteWizards, dashboard(s.CreateWizardHandler()))
	s.RegisterRouteHandler("GET "+RouteWizard, dashboard(s.WizardHandler()))
	s.RegisterRouteHandler("DELETE "+RouteWizard, dashboard(s.DeleteWizardHandler()))
	s.RegisterRouteHandler("PATCH "+RouteWizardFields, dashboard(s.WizardFieldsHandler()))
	s.RegisterRouteHandler("PUT "+RouteWizardImage, dashboard(s.WizardImageHandler()))
	s.RegisterRouteHandler("POST "+RouteWizardMetadata, dashboard(s.WizardMetadataHandler()))
	s.RegisterRouteHandler("POST "+RouteWizardContents, dashboard(s.WizardContentsHandler()))
	s.RegisterRouteHandler("POST "+RouteWizardBack, dashboard(s.WizardBackHandler()))
	s.RegisterRouteHandler("POST "+RouteWizardRows, dashboard(s.WizardAddRowHandler()))
	s.RegisterRouteHandler("PATCH "+RouteWizardRow, dashboard(s.WizardUpdateRowHandler()))
	s.RegisterRouteHandler("DELETE "+RouteWizardRow, dashboard(s.WizardRemoveRowHandler()))
	s.RegisterRouteHandler("POST "+RouteWizardRowSave, dashboard(s.WizardSaveRowHandler()))
	s.RegisterRouteHandler("POST "+RouteWizardSave, dashboard(s.WizardSaveHandler()))
}
