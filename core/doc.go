// Package core contains the onboarding flow's domain contracts, entities,
// and orchestration logic: the step sequencer, the OAuth connection handler,
// and the messenger linking handler. Adapters (storage, gateways, queues)
// depend on this package; core never depends on them.
package core
