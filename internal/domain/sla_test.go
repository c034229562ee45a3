package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/legal-service/internal/domain"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestComputeDeadline(t *testing.T) {
	policy := domain.DefaultSLAPolicy()
	cases := map[domain.Urgency]time.Duration{
		domain.UrgencyUrgent: 4 * time.Hour,
		domain.UrgencyHigh:   12 * time.Hour,
		domain.UrgencyNormal: 24 * time.Hour,
		domain.UrgencyLow:    48 * time.Hour,
	}
	for urgency, offset := range cases {
		deadline, err := policy.ComputeDeadline(urgency, t0)
		require.NoError(t, err)
		assert.Equal(t, t0.Add(offset), deadline, urgency)
	}

	_, err := policy.ComputeDeadline(domain.Urgency("whenever"), t0)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestClassify(t *testing.T) {
	policy := domain.DefaultSLAPolicy()
	deadline := t0.Add(4 * time.Hour)

	assert.Equal(t, domain.SLAOnTime, policy.Classify(deadline, t0))
	assert.Equal(t, domain.SLAOnTime, policy.Classify(deadline, deadline.Add(-2*time.Hour)))
	assert.Equal(t, domain.SLAAtRisk, policy.Classify(deadline, deadline.Add(-time.Hour)))
	assert.Equal(t, domain.SLAAtRisk, policy.Classify(deadline, deadline))
	assert.Equal(t, domain.SLABreached, policy.Classify(deadline, deadline.Add(time.Nanosecond)))
	assert.Equal(t, domain.SLANotApplicable, policy.ClassifyOptional(nil, t0))
}

func TestClassifyIsPure(t *testing.T) {
	policy := domain.DefaultSLAPolicy()
	c := newConsultation(t, domain.UrgencyUrgent)
	before := c.State()

	later := t0.Add(3*time.Hour + 30*time.Minute)
	first := c.CurrentSLAStatus(policy, later)
	second := c.CurrentSLAStatus(policy, later)

	assert.Equal(t, domain.SLAAtRisk, first)
	assert.Equal(t, first, second)
	assert.Equal(t, before, c.State(), "classification must not touch the aggregate")
}

func TestUrgentConsultationBreachesAfterFourHours(t *testing.T) {
	policy := domain.DefaultSLAPolicy()
	c := newConsultation(t, domain.UrgencyUrgent)

	require.NotNil(t, c.SLADeadline())
	assert.Equal(t, t0.Add(4*time.Hour), *c.SLADeadline())
	assert.Equal(t, domain.SLAOnTime, c.SLAStatus())
	assert.Equal(t, domain.SLABreached, policy.Classify(*c.SLADeadline(), t0.Add(4*time.Hour+30*time.Minute)))
}

func TestSLAPolicyValidate(t *testing.T) {
	require.NoError(t, domain.DefaultSLAPolicy().Validate())

	broken := domain.DefaultSLAPolicy()
	broken.Hours = map[domain.Urgency]int{domain.UrgencyUrgent: 4}
	assert.Error(t, broken.Validate())
}
