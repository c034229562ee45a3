package domain

// ProviderProfile is the read-only view of a provider used for matching.
type ProviderProfile struct {
	ID             ProviderID
	DisplayName    string
	Available      bool
	ActiveRequests int
	Rating         float64
}

// MatchCriteria describes the request a provider is sought for.
type MatchCriteria struct {
	Kind     AggregateType
	Category Category
	Urgency  Urgency
	Region   string
}
