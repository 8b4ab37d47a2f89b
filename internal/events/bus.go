// Package events carries domain events from services to their side effects.
package events

import (
	"context"

	"bboard/internal/models"
)

// UserRegistered is published after a self-registered user is stored.
type UserRegistered struct {
	User *models.User
}

// CommentCreated is published after a comment is stored. Author is the
// owner of the commented ad. Created is false when an existing comment
// was saved again.
type CommentCreated struct {
	Comment *models.Comment
	Ad      *models.Ad
	Author  *models.User
	Created bool
}

// Notifier is the mail side of the subscribers.
type Notifier interface {
	SendActivation(ctx context.Context, user *models.User) error
	SendNewComment(ctx context.Context, author *models.User, ad *models.Ad, comment *models.Comment) error
}

// Bus dispatches events to a subscriber set fixed at construction time.
// Dispatch is synchronous and the first subscriber error is returned.
type Bus struct {
	userRegistered []func(context.Context, UserRegistered) error
	commentCreated []func(context.Context, CommentCreated) error
}

// NewBus wires the board's subscribers: activation mail on registration and
// a new-comment letter to ad owners who opted in.
func NewBus(n Notifier) *Bus {
	return &Bus{
		userRegistered: []func(context.Context, UserRegistered) error{
			func(ctx context.Context, e UserRegistered) error {
				return n.SendActivation(ctx, e.User)
			},
		},
		commentCreated: []func(context.Context, CommentCreated) error{
			func(ctx context.Context, e CommentCreated) error {
				if !e.Created || e.Author == nil || !e.Author.SendMessages {
					return nil
				}
				return n.SendNewComment(ctx, e.Author, e.Ad, e.Comment)
			},
		},
	}
}

// PublishUserRegistered runs the registration subscribers.
func (b *Bus) PublishUserRegistered(ctx context.Context, e UserRegistered) error {
	for _, fn := range b.userRegistered {
		if err := fn(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// PublishCommentCreated runs the comment subscribers.
func (b *Bus) PublishCommentCreated(ctx context.Context, e CommentCreated) error {
	for _, fn := range b.commentCreated {
		if err := fn(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
