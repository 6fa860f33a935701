package lookup

import (
	"context"
	"errors"

	"github.com/angelmondragon/disputedesk-backend/pkg/identity"
)

type userClient interface {
	GetUser(ctx context.Context, userID, authToken string) (*identity.User, error)
}

type identityLookup struct {
	client userClient
}

// NewIdentityLookup adapts the auth service client to UserLookup.
func NewIdentityLookup(client userClient) (UserLookup, error) {
	if client == nil {
		return nil, errors.New("identity client required")
	}
	return &identityLookup{client: client}, nil
}

func (l *identityLookup) GetBasicInfo(ctx context.Context, userID, authToken string) (*UserInfo, error) {
	user, err := l.client.GetUser(ctx, userID, authToken)
	if err != nil || user == nil {
		return nil, err
	}
	return &UserInfo{FullName: user.FullName, Email: user.Email}, nil
}
