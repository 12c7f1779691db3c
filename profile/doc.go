// Package profile provides optional runtime profiling for the ftl command.
//
// # Overview
//
// This package integrates [github.com/pkg/profile] to write runtime profiles
// with conditional compilation support. Profiling must be enabled at build
// time with the "pprof" build tag:
//
//	go build -tags pprof .
//
// Without the tag, [Profiler.Start] returns a no-op and [Modes] is empty.
//
// # Modes
//
// The supported modes are allocs, block, clock, cpu, goroutine, heap, mem,
// mutex, thread and trace. Use [Modes] to list them.
//
// # Usage
//
//	p := profile.Profiler{Mode: "cpu", Path: "/tmp/profiles"}
//	ctrl := p.Start()
//	defer ctrl.Stop()
//
// Profile files are written to Path with names matching the mode, such as
// cpu.pprof or mem.pprof. Analyze them with go tool pprof:
//
//	go tool pprof -http=: /tmp/profiles/cpu.pprof
//
// # Template Labels
//
// [Do] runs a function with the pprof label "template" set, so samples taken
// while rendering can be filtered per template:
//
//	go tool pprof -tagfocus=template=page.ftlh cpu.pprof
//
// # Command-Line Usage
//
//	ftl --pprof-mode=cpu render page.ftlh
//	ftl --pprof-mode=heap --pprof-dir=./profiles render page.ftlh
//
// The default output directory is the pprof directory under the user cache
// directory of ftl.
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
