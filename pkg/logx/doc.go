// Package logx is a thin structured-logging layer over zerolog.
//
// Components hold a cheap Logger value. When the Logger comes from a
// Service, its sinks and level can be swapped at runtime (config
// hot-reload) without the holders noticing. The zero Logger is a safe
// no-op.
package logx
