// Package view compiles and renders text templates for mux pipelines.
//
// Templates mix literal text with tags:
//
//	<h1><%= title %></h1>
//	<% if user.admin %>
//	  <p>Welcome back, <%= html(user.name) %></p>
//	<% else if user.name != "" %>
//	  <p>Hello <%= user.name %></p>
//	<% else %>
//	  <p>Hello stranger</p>
//	<% end %>
//	<ul><% for i, item in items %><li><%= i %>: <%= item %></li><% end %></ul>
//	<% set total = size(items) %><% print(total) %>
//
// Expressions are CEL (https://cel.dev) evaluated against the render data
// plus template locals. The CEL string extensions and an html(string)
// escaping function are available. Output is written verbatim. Literal text
// has carriage returns, newlines and tabs replaced with spaces.
//
// "for x in m" over a map binds the keys in sorted order; "for k, v in m"
// binds keys and values, and over a list the index and element.
//
// An Engine fetches template sources through a Loader, keeps compiled
// templates in a Cache and recompiles when the loader reports a newer
// source:
//
//	views := view.New(view.NewFSLoader(os.DirFS("views")), view.WithLogger(logger))
//	pipeline.Engine(".html", views)
//
// Loaders are provided for fs.FS, Redis hashes and S3 buckets.
// NewPlaceholderEngine renders the simpler ${name} substitution syntax with
// the same caching.
package view
