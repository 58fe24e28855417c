// Package routespec compiles declarative route trees into router trees.
//
// A spec lists routes with their path pattern, parameter types and
// guards. Specs are written in CUE, where the route id is the field label
// and field order is sibling order:
//
//	routes: {
//		home: path: ""
//		project: {
//			path: "projects/:id"
//			params: id: "int"
//			search: tab: "string"
//			children: settings: path: "settings"
//		}
//		admin: {
//			path: "admin"
//			guards: [{name: "auth", verdict: "redirect", to: "/login"}]
//		}
//	}
//
// or in YAML, where routes are lists with an explicit id.
//
// Parameter types are "string", "int" and "bool". Guards are rules with a
// fixed verdict, optionally limited to step kinds and to navigations
// leaving a path prefix.
package routespec
