package service

import (
	"context"
	"fmt"
	"strings"

	"bboard/internal/captcha"
	"bboard/internal/events"
	"bboard/internal/middleware"
	"bboard/internal/models"
	"bboard/internal/observability"
	"bboard/internal/repository"
	"bboard/internal/validation"
)

// CommentService stores comments and notifies ad owners.
type CommentService struct {
	comments repository.CommentRepository
	ads      repository.AdRepository
	users    repository.UserRepository
	events   EventPublisher
	captcha  captcha.Verifier
}

func NewCommentService(comments repository.CommentRepository, ads repository.AdRepository, users repository.UserRepository, publisher EventPublisher, verifier captcha.Verifier) *CommentService {
	return &CommentService{
		comments: comments,
		ads:      ads,
		users:    users,
		events:   publisher,
		captcha:  verifier,
	}
}

// CommentInput is the comment form on an ad page. Author falls back to
// SessionUsername when left empty.
type CommentInput struct {
	RubricID        uint
	AdID            uint
	Author          string
	Content         string
	SessionUsername string
	Captcha         CaptchaInput
}

// Create validates and stores an active comment, then mails the ad owner if
// they asked for it. A mail failure is returned after the comment is stored.
func (s *CommentService) Create(ctx context.Context, in CommentInput) (*models.Comment, error) {
	ad, err := publicAd(ctx, s.ads, in.RubricID, in.AdID)
	if err != nil {
		return nil, err
	}

	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = in.SessionUsername
	}

	fe := models.FieldErrors{}
	if err := verifyCaptcha(ctx, s.captcha, in.Captcha, "comment", fe); err != nil {
		return nil, err
	}
	for field, msgs := range validation.ValidateComment(author, in.Content) {
		for _, m := range msgs {
			fe.Add(field, m)
		}
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		AdID:     ad.ID,
		Author:   author,
		Content:  strings.TrimSpace(in.Content),
		IsActive: true,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommentsTotal.Inc()
	middleware.Logger.InfoContext(ctx, "comment added", "ad_id", ad.ID, "comment_id", comment.ID)

	owner, err := s.users.GetByID(ctx, ad.AuthorID)
	if err != nil {
		return comment, err
	}
	err = s.events.PublishCommentCreated(ctx, events.CommentCreated{
		Comment: comment,
		Ad:      ad,
		Author:  owner,
		Created: true,
	})
	if err != nil {
		return comment, fmt.Errorf("send new comment letter: %w", err)
	}
	return comment, nil
}
