package service

import (
	"github.com/spec-kit/legal-service/internal/domain"
	apperrors "github.com/spec-kit/legal-service/pkg/util/errorutil"
)

func requireActor(actor Actor) error {
	switch actor.Role {
	case RoleSubscriber, RoleProvider, RoleAdmin, RoleSystem:
		return nil
	}
	return apperrors.NewUnauthorized("actor required")
}

func requireAdmin(actor Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.privileged() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// requireOwner admits the subscriber who filed the request.
func requireOwner(actor Actor, subscriber domain.SubscriberID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.privileged() {
		return nil
	}
	if actor.Role == RoleSubscriber && actor.ID == string(subscriber) {
		return nil
	}
	return apperrors.NewForbidden("only the requesting subscriber may do this")
}

// requireAssignee admits the provider currently assigned to the request.
func requireAssignee(actor Actor, provider *domain.ProviderID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.privileged() {
		return nil
	}
	if actor.Role == RoleProvider && provider != nil && actor.ID == string(*provider) {
		return nil
	}
	return apperrors.NewForbidden("only the assigned provider may do this")
}

// requireParticipant admits the owner, the assigned provider or an admin.
func requireParticipant(actor Actor, subscriber domain.SubscriberID, provider *domain.ProviderID) error {
	if requireOwner(actor, subscriber) == nil {
		return nil
	}
	return requireAssignee(actor, provider)
}

// scopeFilter narrows listings to what the actor may see.
func scopeFilter(actor Actor, subscriber, provider *string) (*domain.SubscriberID, *domain.ProviderID, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	var (
		sub  *domain.SubscriberID
		prov *domain.ProviderID
	)
	if subscriber != nil && *subscriber != "" {
		v := domain.SubscriberID(*subscriber)
		sub = &v
	}
	if provider != nil && *provider != "" {
		v := domain.ProviderID(*provider)
		prov = &v
	}
	switch actor.Role {
	case RoleSubscriber:
		v := domain.SubscriberID(actor.ID)
		sub = &v
	case RoleProvider:
		v := domain.ProviderID(actor.ID)
		prov = &v
	}
	return sub, prov, nil
}
