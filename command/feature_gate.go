package command

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/google/uuid"
)

const (
	featureInvitesIssue   = "invites.issue"
	featureInvitesReissue = "invites.reissue"
)

func featureEnabled(ctx context.Context, gate featuregate.FeatureGate, key string, actor types.ActorRef) (bool, error) {
	if gate == nil {
		return true, nil
	}
	if actor.ID == uuid.Nil {
		return gate.Enabled(ctx, key)
	}
	return gate.Enabled(ctx, key, featuregate.WithScopeChain(featuregate.ScopeChain{
		{Kind: featuregate.ScopeUser, ID: actor.ID.String()},
		{Kind: featuregate.ScopeSystem},
	}))
}
