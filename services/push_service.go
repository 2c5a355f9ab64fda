package services

import (
	"context"
	"fmt"
	"strings"

	"safewatch/interfaces"
	"safewatch/models"
	"safewatch/utils"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// Twilio queues at roughly one message per second per sending number.
const (
	smsRatePerSecond = 1
	smsBurst         = 5
)

// PushClient is the subset of the FCM client used for alerts.
type PushClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// SMSClient is the subset of the Twilio API used for alerts.
type SMSClient interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// PushService delivers alert tasks over FCM push and Twilio SMS. It is the
// queue's send collaborator.
type PushService struct {
	push       PushClient
	sms        SMSClient
	fromNumber string
	smsLimiter *rate.Limiter
	profiles   interfaces.ProfileStore
	validator  *utils.ValidationService
}

func NewPushService(
	ctx context.Context,
	firebaseCredentials, twilioSID, twilioToken, twilioNumber string,
	profiles interfaces.ProfileStore,
) (*PushService, error) {
	var push PushClient
	if firebaseCredentials != "" {
		opt := option.WithCredentialsFile(firebaseCredentials)
		app, err := firebase.NewApp(ctx, nil, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firebase: %v", err)
		}

		fcmClient, err := app.Messaging(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize FCM client: %v", err)
		}
		push = fcmClient
	} else {
		logrus.Warn("Firebase credentials not configured, push alerts disabled")
	}

	var sms SMSClient
	if twilioSID != "" && twilioToken != "" {
		twilioClient := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: twilioSID,
			Password: twilioToken,
		})
		sms = twilioClient.Api
	} else {
		logrus.Warn("Twilio credentials not configured, SMS alerts disabled")
	}

	return NewPushServiceWithClients(push, sms, twilioNumber, profiles, nil), nil
}

func NewPushServiceWithClients(
	push PushClient,
	sms SMSClient,
	fromNumber string,
	profiles interfaces.ProfileStore,
	validator *utils.ValidationService,
) *PushService {
	if validator == nil {
		validator = utils.NewValidationService()
	}

	return &PushService{
		push:       push,
		sms:        sms,
		fromNumber: fromNumber,
		smsLimiter: rate.NewLimiter(rate.Limit(smsRatePerSecond), smsBurst),
		profiles:   profiles,
		validator:  validator,
	}
}

// Send delivers task. Emergency alerts go by SMS to every emergency contact
// and by push to the user's circle; everything else is push only. Success
// means at least one channel accepted the message.
func (ps *PushService) Send(ctx context.Context, task models.AlertTask) error {
	profile, err := ps.profiles.GetCurrentUserProfile(ctx, task.UserID)
	if err != nil {
		return utils.NewDeliveryError("could not load user profile", err)
	}

	title, body := ps.formatAlert(task, *profile)
	var delivered int
	var failures []string

	if task.Type == models.AlertTypeEmergency {
		for _, contact := range profile.EmergencyContacts {
			if !ps.validator.IsValidPhone(contact.Phone) {
				failures = append(failures, fmt.Sprintf("contact %s: invalid phone", contact.Name))
				continue
			}
			if err := ps.sendSMS(ctx, contact.Phone, title+": "+body); err != nil {
				failures = append(failures, fmt.Sprintf("sms %s: %v", contact.Name, err))
				continue
			}
			delivered++
		}
	}

	if err := ps.sendPush(ctx, task, *profile, title, body); err != nil {
		failures = append(failures, fmt.Sprintf("push: %v", err))
	} else {
		delivered++
	}

	if delivered == 0 {
		return utils.NewDeliveryError(
			fmt.Sprintf("alert %s not delivered on any channel", task.ID),
			fmt.Errorf("%s", strings.Join(failures, "; ")),
		)
	}

	if len(failures) > 0 {
		logrus.Warnf("Alert %s partially delivered: %s", task.ID, strings.Join(failures, "; "))
	}

	return nil
}

func (ps *PushService) sendSMS(ctx context.Context, to, message string) error {
	if ps.sms == nil {
		return fmt.Errorf("sms not configured")
	}
	if err := ps.smsLimiter.Wait(ctx); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(ps.fromNumber)
	params.SetBody(message)

	_, err := ps.sms.CreateMessage(params)
	return err
}

func (ps *PushService) sendPush(ctx context.Context, task models.AlertTask, profile models.UserProfile, title, body string) error {
	if ps.push == nil {
		return fmt.Errorf("push not configured")
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: ps.pushData(task),
	}

	switch {
	case task.Type == models.AlertTypeEmergency && profile.CircleTopic != "":
		message.Topic = profile.CircleTopic
	case profile.DeviceToken != "":
		message.Token = profile.DeviceToken
	case profile.CircleTopic != "":
		message.Topic = profile.CircleTopic
	default:
		return fmt.Errorf("no push target for user %s", profile.ID)
	}

	sound := "default"
	if task.Priority == models.AlertPriorityHigh {
		sound = "emergency"
	}
	message.Android = &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Sound: sound,
			Icon:  "ic_notification",
		},
	}
	message.APNS = &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound: sound,
			},
		},
	}

	_, err := ps.push.Send(ctx, message)
	return err
}

func (ps *PushService) pushData(task models.AlertTask) map[string]string {
	data := map[string]string{
		"taskId":   task.ID,
		"type":     string(task.Type),
		"priority": string(task.Priority),
	}
	for k, v := range task.Payload {
		data[k] = fmt.Sprintf("%v", v)
	}
	return data
}

func (ps *PushService) formatAlert(task models.AlertTask, profile models.UserProfile) (string, string) {
	name := profile.DisplayName()

	switch task.Type {
	case models.AlertTypeEmergency:
		body := fmt.Sprintf("%s has triggered a panic alert", name)
		if lat, ok := task.Payload["latitude"].(float64); ok {
			if lon, ok := task.Payload["longitude"].(float64); ok {
				body += fmt.Sprintf(". Last known location: https://maps.google.com/?q=%.6f,%.6f", lat, lon)
			}
		}
		return "🚨 EMERGENCY ALERT", body
	case models.AlertTypeGeofenceNotice:
		zone, _ := task.Payload["zoneName"].(string)
		level, _ := task.Payload["newLevel"].(string)
		if zone == "" {
			return "⚠️ Safety Zone Alert", fmt.Sprintf("%s has entered a %s area", name, level)
		}
		return "⚠️ Safety Zone Alert", fmt.Sprintf("%s has entered %s (%s)", name, zone, level)
	default:
		return "📍 Location Update", fmt.Sprintf("%s shared a location update", name)
	}
}
