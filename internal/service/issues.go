package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"utmcouncil/vote-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IssueReport is validated input from the public report form
type IssueReport struct {
	Email        string
	Name         string
	Phone        string
	CarnetNumber string
	Class        string
	IssueType    string
	Description  string
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func ReportIssue(ctx context.Context, db *gorm.DB, r IssueReport) (*model.Issue, error) {
	issue := &model.Issue{
		ID:           uuid.NewString(),
		Email:        r.Email,
		Name:         r.Name,
		Phone:        r.Phone,
		CarnetNumber: optional(r.CarnetNumber),
		Class:        optional(r.Class),
		IssueType:    r.IssueType,
		Description:  r.Description,
		Status:       model.IssueOpen,
	}

	if err := db.WithContext(ctx).Create(issue).Error; err != nil {
		return nil, fmt.Errorf("failed to save issue, %w", err)
	}

	return issue, nil
}

// ListIssues returns open issues first, newest first within each status
func ListIssues(ctx context.Context, db *gorm.DB) ([]model.Issue, error) {
	issues := []model.Issue{}

	err := db.WithContext(ctx).
		Order(fmt.Sprintf("CASE WHEN status = '%s' THEN 0 ELSE 1 END", model.IssueOpen)).
		Order("created_at DESC").
		Find(&issues).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list issues, %w", err)
	}

	return issues, nil
}

func ResolveIssue(ctx context.Context, db *gorm.DB, id string) (*model.Issue, error) {
	var issue model.Issue

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&issue).Error; err != nil {
			return err
		}

		if issue.Status == model.IssueResolved {
			return nil
		}

		now := time.Now()
		issue.Status = model.IssueResolved
		issue.ResolvedAt = &now

		return tx.Save(&issue).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to resolve issue, %w", err)
	}

	return &issue, nil
}

func DeleteIssue(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&model.Issue{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete issue, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
