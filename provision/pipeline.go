package provision

import (
	"context"

	"github.com/seferino-fernandez/scripts/config"
)

// DefaultSteps is the bootstrap procedure in its fixed order.
func DefaultSteps() []Step {
	return []Step{
		{Name: "packages", Label: "Install packages and upgrade system", Apply: installPackages},
		{Name: "locale", Label: "Configure locale and timezone", Apply: configureLocale},
		{Name: "user", Label: "Create admin user and sudo access", Apply: ensureUser},
		{Name: "ssh_keys", Label: "Install SSH public key", Apply: installKeys},
		{Name: "firewall", Label: "Configure firewall", Apply: configureFirewall},
		{Name: "fail2ban", Label: "Configure fail2ban", Apply: configureFail2ban},
		{Name: "unattended_upgrades", Label: "Configure automatic security updates", Apply: configureUpgrades},
		{Name: "sshd", Label: "Harden SSH daemon", Apply: hardenSSHD},
	}
}

// Event is reported to Pipeline.Progress before and after each step.
type Event struct {
	Index int
	Total int
	Step  Step
	Done  bool
	Err   error
}

// Pipeline runs steps in order and stops at the first failure. There are no
// retries and no rollback of steps that already completed.
type Pipeline struct {
	Steps    []Step
	Progress func(Event)
}

func NewPipeline(steps []Step) *Pipeline {
	return &Pipeline{Steps: steps}
}

func (p *Pipeline) notify(ev Event) {
	if p.Progress != nil {
		p.Progress(ev)
	}
}

func (p *Pipeline) Run(ctx context.Context, h *Host, cfg *config.Config) error {
	total := len(p.Steps)
	for i, step := range p.Steps {
		p.notify(Event{Index: i + 1, Total: total, Step: step})
		log.Info("[%d/%d] Starting: %s", i+1, total, step.Label)

		if err := step.Apply(ctx, h, cfg); err != nil {
			stepErr := &StepError{Step: step.Name, Err: err}
			log.Error("[%d/%d] %v", i+1, total, stepErr)
			p.notify(Event{Index: i + 1, Total: total, Step: step, Done: true, Err: stepErr})
			return stepErr
		}

		log.Info("[%d/%d] Completed: %s", i+1, total, step.Label)
		p.notify(Event{Index: i + 1, Total: total, Step: step, Done: true})
	}
	return nil
}
