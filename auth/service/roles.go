package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goserg/memberportal/auth/users"
	"github.com/goserg/memberportal/internal/metrics"
)

func (s *Service) Promote(ctx context.Context, caller users.Identity, target uuid.UUID) error {
	return s.changeRole(ctx, caller, target, users.RoleAdmin)
}

// Demote has no self protection, an admin may demote themselves.
func (s *Service) Demote(ctx context.Context, caller users.Identity, target uuid.UUID) error {
	return s.changeRole(ctx, caller, target, users.RoleUser)
}

// changeRole checks the caller on its own, routes are gated as well.
func (s *Service) changeRole(ctx context.Context, caller users.Identity, target uuid.UUID, role users.Role) error {
	if !caller.IsAdmin() {
		s.metrics.RoleChange(role.String(), metrics.ResultForbidden)
		return ErrForbidden
	}
	if err := s.creds.SetRole(ctx, target, role); err != nil {
		s.metrics.RoleChange(role.String(), metrics.ResultError)
		return err
	}
	s.metrics.RoleChange(role.String(), metrics.ResultOK)
	s.log.WithFields(logrus.Fields{
		"by":     caller.ID,
		"target": target,
		"role":   role,
	}).Info("role changed")
	return nil
}
