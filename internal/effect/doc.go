// Package effect runs side effects in response to actions.
//
// An Effect subscribes to one action key and may emit further actions
// through the bus. Effects started together are independent: an error from
// one is wrapped in an *EffectError and reported, and every other effect
// keeps running.
package effect
