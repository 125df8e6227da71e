package services

import (
	"context"
	"strings"

	"github.com/shashiranjanraj/mithai/app/models"
	"github.com/shashiranjanraj/mithai/app/repositories"
	"github.com/shashiranjanraj/mithai/pkg/apperr"
	"github.com/shashiranjanraj/mithai/pkg/orm"
)

type AdminService struct {
	users *repositories.UserRepository
	logs  *repositories.AuditRepository
	audit *AuditRecorder
}

func NewAdminService(users *repositories.UserRepository, logs *repositories.AuditRepository, audit *AuditRecorder) *AdminService {
	return &AdminService{users: users, logs: logs, audit: audit}
}

// Users lists every account. The read itself is audited.
func (s *AdminService) Users(ctx context.Context, adminID uint) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Database(err)
	}
	err = s.audit.Record(ctx, nil, adminID, models.ActionViewUsers, "users", 0, models.Metadata{"count": len(users)})
	if err != nil {
		return nil, apperr.Database(err)
	}
	return users, nil
}

type AuditQuery struct {
	Action  string
	UserID  uint
	Page    int
	PerPage int
}

type AuditPage struct {
	Logs  []models.AuditLog
	Total int64
	Page  orm.Page
}

func (s *AdminService) AuditLogs(ctx context.Context, q AuditQuery) (AuditPage, error) {
	page := orm.NewPage(q.Page, q.PerPage)
	logs, total, err := s.logs.List(ctx, repositories.AuditFilter{
		Action: strings.ToUpper(strings.TrimSpace(q.Action)),
		UserID: q.UserID,
		Page:   page,
	})
	if err != nil {
		return AuditPage{}, apperr.Database(err)
	}
	return AuditPage{Logs: logs, Total: total, Page: page}, nil
}
