package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/legal-service/internal/domain"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

func TestValueObjects(t *testing.T) {
	t.Run("request id must be a uuid", func(t *testing.T) {
		_, err := domain.ParseRequestID("not-a-uuid")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

		id := domain.NewRequestID()
		parsed, err := domain.ParseRequestID(" " + id.String() + " ")
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("reference ids are trimmed and bounded", func(t *testing.T) {
		p, err := domain.NewProviderID("  prov-9 ")
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderID("prov-9"), p)

		_, err = domain.NewSubscriberID("")
		assert.Error(t, err)
		_, err = domain.NewActorID(strings.Repeat("a", 65))
		assert.Error(t, err)
	})

	t.Run("human number pattern", func(t *testing.T) {
		_, err := domain.NewHumanNumber("CON-20260302-0042")
		assert.NoError(t, err)
		_, err = domain.NewHumanNumber("con-2026-1")
		assert.Error(t, err)
	})

	t.Run("text bounds", func(t *testing.T) {
		_, err := domain.NewTitle("ab")
		assert.Error(t, err)
		_, err = domain.NewDescription("too short")
		assert.Error(t, err)
		r, err := domain.OptionalReason("  ")
		assert.NoError(t, err)
		assert.Nil(t, r)
	})

	t.Run("money equality is exact", func(t *testing.T) {
		a, err := domain.ParseMoney("1000", "sar")
		require.NoError(t, err)
		b, err := domain.ParseMoney("1000.00", "SAR")
		require.NoError(t, err)
		c, err := domain.ParseMoney("1000", "USD")
		require.NoError(t, err)

		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(c))
		assert.Equal(t, "1000.00 SAR", a.String())

		_, err = domain.ParseMoney("-1", "SAR")
		assert.Error(t, err)
		_, err = domain.ParseMoney("10", "RIYAL")
		assert.Error(t, err)
	})

	t.Run("rating range", func(t *testing.T) {
		_, err := domain.NewRating(0)
		assert.Error(t, err)
		r, err := domain.NewRating(5)
		require.NoError(t, err)
		assert.Equal(t, 5, r.Int())
	})

	t.Run("enums", func(t *testing.T) {
		u, err := domain.ParseUrgency("")
		require.NoError(t, err)
		assert.Equal(t, domain.UrgencyNormal, u)
		_, err = domain.ParseConsultationStatus("open")
		assert.Error(t, err)
		s, err := domain.ParseLitigationStatus("QUOTE_SENT")
		require.NoError(t, err)
		assert.Equal(t, domain.LitigationQuoteSent, s)
	})
}

func TestStatusHistory(t *testing.T) {
	id := domain.NewRequestID()
	from := string(domain.ConsultationPending)
	actor := domain.ActorID("sub-1")
	reason := domain.Reason("changed my mind")

	h, err := domain.NewStatusHistory(domain.StatusChange{
		AggregateType: domain.AggregateConsultation,
		AggregateID:   id,
		From:          &from,
		To:            string(domain.ConsultationCancelled),
		Reason:        &reason,
		ChangedBy:     &actor,
	}, t0)
	require.NoError(t, err)

	assert.NotEmpty(t, h.ID())
	assert.Equal(t, t0, h.ChangedAt())
	assert.Equal(t, "pending", *h.FromStatus())
	assert.Equal(t, "cancelled", h.ToStatus())

	from = "assigned"
	assert.Equal(t, "pending", *h.FromStatus(), "entry must not alias caller input")

	restored := domain.RestoreStatusHistory(h.State())
	assert.Equal(t, h.State(), restored.State())

	_, err = domain.NewStatusHistory(domain.StatusChange{AggregateType: "ticket", AggregateID: id, To: "x"}, time.Now())
	assert.Error(t, err)
}
