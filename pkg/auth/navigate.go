package auth

// Route names a view the application can navigate to.
type Route string

const (
	RouteRoot     Route = "/"
	RouteLogin    Route = "/login"
	RouteRegister Route = "/register"
	RouteProfile  Route = "/profile"
	RouteSuccess  Route = "/success"
)

// Navigator performs the navigation side-effect of an auth operation.
type Navigator interface {
	Navigate(Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Route)

func (f NavigatorFunc) Navigate(r Route) { f(r) }

type noopNavigator struct{}

func (noopNavigator) Navigate(Route) {}
