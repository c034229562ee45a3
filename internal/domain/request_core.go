package domain

import (
	"time"
)

// requestCore holds the fields both request families share.
type requestCore struct {
	id           RequestID
	number       HumanNumber
	subscriberID SubscriberID
	providerID   *ProviderID
	urgency      Urgency
	title        Title
	description  Description
	category     Category
	jurisdiction string
	submittedAt  time.Time
	assignedAt   *time.Time
	slaDeadline  *time.Time
	slaStatus    SLAStatus
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// RequestDetails is the validated creation input shared by both families.
type RequestDetails struct {
	Number       HumanNumber
	SubscriberID SubscriberID
	Urgency      Urgency
	Title        Title
	Description  Description
	Category     Category
	Jurisdiction string
}

func newRequestCore(details RequestDetails, policy SLAPolicy, now time.Time) (requestCore, error) {
	deadline, err := policy.ComputeDeadline(details.Urgency, now)
	if err != nil {
		return requestCore{}, err
	}
	return requestCore{
		id:           NewRequestID(),
		number:       details.Number,
		subscriberID: details.SubscriberID,
		urgency:      details.Urgency,
		title:        details.Title,
		description:  details.Description,
		category:     details.Category,
		jurisdiction: details.Jurisdiction,
		submittedAt:  now,
		slaDeadline:  &deadline,
		slaStatus:    policy.Classify(deadline, now),
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

func (c *requestCore) ID() RequestID               { return c.id }
func (c *requestCore) Number() HumanNumber         { return c.number }
func (c *requestCore) SubscriberID() SubscriberID  { return c.subscriberID }
func (c *requestCore) Urgency() Urgency            { return c.urgency }
func (c *requestCore) Title() Title                { return c.title }
func (c *requestCore) Description() Description    { return c.description }
func (c *requestCore) Category() Category          { return c.category }
func (c *requestCore) Jurisdiction() string        { return c.jurisdiction }
func (c *requestCore) SubmittedAt() time.Time      { return c.submittedAt }
func (c *requestCore) AssignedAt() *time.Time      { return copyTime(c.assignedAt) }
func (c *requestCore) SLADeadline() *time.Time     { return copyTime(c.slaDeadline) }
func (c *requestCore) SLAStatus() SLAStatus        { return c.slaStatus }
func (c *requestCore) CreatedAt() time.Time        { return c.createdAt }
func (c *requestCore) UpdatedAt() time.Time        { return c.updatedAt }
func (c *requestCore) DeletedAt() *time.Time       { return copyTime(c.deletedAt) }
func (c *requestCore) IsDeleted() bool             { return c.deletedAt != nil }
func (c *requestCore) HasProvider() bool           { return c.providerID != nil }
func (c *requestCore) AssignedProviderID() *ProviderID {
	if c.providerID == nil {
		return nil
	}
	p := *c.providerID
	return &p
}

// CurrentSLAStatus classifies live against now without touching the aggregate.
func (c *requestCore) CurrentSLAStatus(policy SLAPolicy, now time.Time) SLAStatus {
	return policy.ClassifyOptional(c.slaDeadline, now)
}

func (c *requestCore) setProvider(provider ProviderID, now time.Time) {
	c.providerID = &provider
	c.assignedAt = timePtr(now)
}

func (c *requestCore) refreshSLA(policy SLAPolicy, now time.Time) bool {
	next := policy.ClassifyOptional(c.slaDeadline, now)
	if next == c.slaStatus {
		return false
	}
	c.slaStatus = next
	return true
}

func (c *requestCore) overrideSLA(deadline *time.Time, status SLAStatus, now time.Time) error {
	parsed, err := ParseSLAStatus(string(status))
	if err != nil {
		return err
	}
	c.slaDeadline = copyTime(deadline)
	c.slaStatus = parsed
	c.updatedAt = now
	return nil
}

func (c *requestCore) softDelete(now time.Time) bool {
	if c.deletedAt != nil {
		return false
	}
	c.deletedAt = timePtr(now)
	c.updatedAt = now
	return true
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
