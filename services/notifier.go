package services

import (
	"context"
	"fmt"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"go.uber.org/zap"
)

// Live feed event types.
const (
	EventLeadApproved        = "lead_approved"
	EventWithdrawalProcessed = "withdrawal_processed"
)

// Notifier fans out engine events. It never fails the caller.
type Notifier interface {
	LeadApproved(ctx context.Context, agent *models.User, result *models.ApprovalResult)
	WithdrawalProcessed(ctx context.Context, agent *models.User, req *models.WithdrawRequest)
}

type OperatorFeed interface {
	Publish(eventType, message string, data interface{})
}

type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

type EmailSender interface {
	Send(to, subject, body string) error
}

// NotificationService publishes to the operator feed synchronously and pushes/emails agents
// in the background. Any sender may be nil.
type NotificationService struct {
	feed   OperatorFeed
	push   PushSender
	mail   EmailSender
	logger *zap.Logger
	// async is false in tests so deliveries are observable on return.
	async bool
}

func NewNotificationService(feed OperatorFeed, push PushSender, mail EmailSender, logger *zap.Logger) *NotificationService {
	return &NotificationService{feed: feed, push: push, mail: mail, logger: logger, async: true}
}

func (n *NotificationService) LeadApproved(ctx context.Context, agent *models.User, result *models.ApprovalResult) {
	msg := fmt.Sprintf("Lead %s approved for %s", result.LeadID, agent.FullName)
	if n.feed != nil {
		n.feed.Publish(EventLeadApproved, msg, result)
	}

	body := fmt.Sprintf("Your lead %s was approved. Earning: %.2f", result.LeadID, result.Amount)
	if result.Bonus != nil {
		body += fmt.Sprintf(". You reached %s and earned a bonus of %.2f", result.Bonus.Tier, result.Bonus.Amount)
	}
	n.deliver(func(ctx context.Context) {
		n.pushTo(ctx, agent, "Lead approved", body, map[string]string{
			"type":   EventLeadApproved,
			"leadId": result.LeadID,
		})
	})
}

func (n *NotificationService) WithdrawalProcessed(ctx context.Context, agent *models.User, req *models.WithdrawRequest) {
	msg := fmt.Sprintf("Withdraw request %s %s", req.ID, req.Status)
	if n.feed != nil {
		n.feed.Publish(EventWithdrawalProcessed, msg, req)
	}

	title := "Withdrawal " + string(req.Status)
	body := fmt.Sprintf("Dear %s,\n\nYour withdraw request of %.2f has been %s.", agent.FullName, req.Amount, req.Status)
	if req.AdminNote != "" {
		body += "\nNote: " + req.AdminNote
	}
	body += "\n\nBest regards,\nLeadBridge"

	n.deliver(func(ctx context.Context) {
		n.pushTo(ctx, agent, title, fmt.Sprintf("Your withdraw request of %.2f has been %s.", req.Amount, req.Status),
			map[string]string{"type": EventWithdrawalProcessed, "withdrawRequestId": req.ID})
		if n.mail != nil && agent.Email != "" {
			if err := n.mail.Send(agent.Email, title, body); err != nil {
				n.logger.Warn("failed to email agent", zap.String("agent_id", agent.ID), zap.Error(err))
			}
		}
	})
}

func (n *NotificationService) pushTo(ctx context.Context, agent *models.User, title, body string, data map[string]string) {
	if n.push == nil || agent.FCMToken == "" {
		return
	}
	if err := n.push.Send(ctx, agent.FCMToken, title, body, data); err != nil {
		n.logger.Warn("failed to push to agent", zap.String("agent_id", agent.ID), zap.Error(err))
	}
}

func (n *NotificationService) deliver(fn func(ctx context.Context)) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		fn(ctx)
	}
	if n.async {
		go run()
		return
	}
	run()
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) LeadApproved(context.Context, *models.User, *models.ApprovalResult)         {}
func (NopNotifier) WithdrawalProcessed(context.Context, *models.User, *models.WithdrawRequest) {}
