// Package notify fans schedule events out to interested parties.
//
// Hub is the synchronous, in-process fan-out the registry publishes
// into. Dispatcher is an optional async pipeline (queue + workers +
// rate limit + retry) that forwards hub events to external Sinks; it
// attaches to the Hub like any other listener.
package notify
