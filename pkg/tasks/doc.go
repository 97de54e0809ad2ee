// Package tasks turns configured task tables into ordered lists of commands.
//
// A task table maps command kinds to payloads and may declare dependencies on
// other tasks:
//
//	[tasks.nginx]
//	install = "nginx"
//
//	[tasks.web]
//	dependencies = ["nginx"]
//	start = "nginx"
//
// Resolving "web" yields the commands of "nginx" followed by the commands of
// "web" in declared order.
package tasks
