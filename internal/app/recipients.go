package app

import (
	"context"
	"fmt"

	"evdb_notifier/internal/domain/notification"
	"evdb_notifier/internal/domain/user"
)

// UserDirectory resolves notification audiences against the user repository.
// Inactive users are never returned.
type UserDirectory struct {
	users user.Repository
}

func NewUserDirectory(users user.Repository) *UserDirectory {
	return &UserDirectory{users: users}
}

func (d *UserDirectory) ResolveRecipients(ctx context.Context, n *notification.ScheduledNotification) ([]*user.User, error) {
	if !n.TargetAudience.Valid() {
		return nil, fmt.Errorf("unknown target audience %q", n.TargetAudience)
	}

	var (
		found []*user.User
		err   error
	)

	switch n.TargetAudience {
	case notification.AudienceAllUsers:
		found, err = d.users.ListActive(ctx)
	case notification.AudienceSpecificRoles:
		if len(n.TargetRoles) == 0 {
			return nil, nil
		}
		found, err = d.users.ListActiveByRoles(ctx, n.TargetRoles)
	case notification.AudienceIndividualUsers:
		if len(n.TargetUserIDs) == 0 {
			return nil, nil
		}
		found, err = d.users.ListActiveByIDs(ctx, n.TargetUserIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s recipients: %w", n.TargetAudience, err)
	}

	seen := make(map[int64]struct{}, len(found))
	recipients := make([]*user.User, 0, len(found))
	for _, u := range found {
		if !u.IsActive {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		recipients = append(recipients, u)
	}
	return recipients, nil
}
