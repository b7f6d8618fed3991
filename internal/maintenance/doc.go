// Package maintenance registers the recurring job that prunes stale tokens
// and authorizations.
//
// Register adds the job, its JobDetail and an hourly Trigger to a core
// builder's service collection. The scheduler Host picks them up when it
// starts. Registration is idempotent: calling Register several times leaves
// one job detail and one trigger.
package maintenance
