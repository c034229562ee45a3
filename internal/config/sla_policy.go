package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/legal-service/internal/domain"
)

// SLAPolicies holds one urgency table per request family.
type SLAPolicies struct {
	Consultation domain.SLAPolicy
	Litigation   domain.SLAPolicy
}

type slaPolicyFile struct {
	RiskThresholdMinutes int            `yaml:"risk_threshold_minutes"`
	Consultation         slaPolicyTable `yaml:"consultation"`
	Litigation           slaPolicyTable `yaml:"litigation"`
}

type slaPolicyTable struct {
	RiskThresholdMinutes int            `yaml:"risk_threshold_minutes"`
	Hours                map[string]int `yaml:"hours"`
}

// LoadSLAPolicies starts from the stock tables and overlays whatever the
// policy file sets. A missing path keeps the defaults.
func LoadSLAPolicies(cfg SLAConfig) (SLAPolicies, error) {
	base := domain.DefaultSLAPolicy()
	if cfg.RiskThresholdMinutes > 0 {
		base.RiskThreshold = cfg.RiskThreshold()
	}
	policies := SLAPolicies{Consultation: clonePolicy(base), Litigation: clonePolicy(base)}
	if cfg.PolicyFile == "" {
		return policies, nil
	}

	raw, err := os.ReadFile(cfg.PolicyFile)
	if err != nil {
		return SLAPolicies{}, fmt.Errorf("read sla policy file: %w", err)
	}
	return ParseSLAPolicies(raw, base)
}

// ParseSLAPolicies decodes a YAML policy document on top of base.
func ParseSLAPolicies(raw []byte, base domain.SLAPolicy) (SLAPolicies, error) {
	var f slaPolicyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return SLAPolicies{}, fmt.Errorf("parse sla policy file: %w", err)
	}
	if f.RiskThresholdMinutes > 0 {
		base.RiskThreshold = time.Duration(f.RiskThresholdMinutes) * time.Minute
	}

	consultation, err := f.Consultation.apply(base)
	if err != nil {
		return SLAPolicies{}, fmt.Errorf("consultation sla policy: %w", err)
	}
	litigation, err := f.Litigation.apply(base)
	if err != nil {
		return SLAPolicies{}, fmt.Errorf("litigation sla policy: %w", err)
	}
	return SLAPolicies{Consultation: consultation, Litigation: litigation}, nil
}

func (t slaPolicyTable) apply(base domain.SLAPolicy) (domain.SLAPolicy, error) {
	policy := clonePolicy(base)
	if t.RiskThresholdMinutes > 0 {
		policy.RiskThreshold = time.Duration(t.RiskThresholdMinutes) * time.Minute
	}
	for raw, hours := range t.Hours {
		urgency, err := domain.ParseUrgency(raw)
		if err != nil {
			return domain.SLAPolicy{}, err
		}
		policy.Hours[urgency] = hours
	}
	if err := policy.Validate(); err != nil {
		return domain.SLAPolicy{}, err
	}
	return policy, nil
}

func clonePolicy(p domain.SLAPolicy) domain.SLAPolicy {
	hours := make(map[domain.Urgency]int, len(p.Hours))
	for k, v := range p.Hours {
		hours[k] = v
	}
	return domain.SLAPolicy{Hours: hours, RiskThreshold: p.RiskThreshold}
}
