package notify

import (
	"fmt"

	"github.com/bookedbarber/bookedbarber-api/internal/models"
	"github.com/bookedbarber/bookedbarber-api/internal/timezone"
)

// Message content for the appointment lifecycle. Plain text on purpose:
// shops brand the emails later, SMS has no markup anyway.

type Message struct {
	Subject string
	Body    string
}

func appointmentTime(ap *models.Appointment, shop *models.Barbershop) string {
	loc := timezone.Location(shop.Timezone)
	return ap.StartTime.In(loc).Format("Monday, Jan 2 at 3:04 PM")
}

func ConfirmationMessage(ap *models.Appointment, shop *models.Barbershop, svc *models.Service, client *models.Client) Message {
	when := appointmentTime(ap, shop)
	return Message{
		Subject: fmt.Sprintf("Your appointment at %s is confirmed", shop.Name),
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour %s at %s is confirmed for %s.\n\nSee you there!\n%s",
			client.Name, svc.Name, shop.Name, when, shop.Name,
		),
	}
}

func ReminderMessage(ap *models.Appointment, shop *models.Barbershop, svc *models.Service, client *models.Client) Message {
	when := appointmentTime(ap, shop)
	return Message{
		Subject: fmt.Sprintf("Reminder: %s at %s", svc.Name, shop.Name),
		Body: fmt.Sprintf(
			"Hi %s,\n\nThis is a reminder about your %s at %s on %s.\n\n%s",
			client.Name, svc.Name, shop.Name, when, shop.Name,
		),
	}
}

func CancellationMessage(ap *models.Appointment, shop *models.Barbershop, svc *models.Service, client *models.Client) Message {
	when := appointmentTime(ap, shop)
	return Message{
		Subject: fmt.Sprintf("Your appointment at %s was cancelled", shop.Name),
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour %s at %s on %s has been cancelled. You can book a new time anytime.\n\n%s",
			client.Name, svc.Name, shop.Name, when, shop.Name,
		),
	}
}

func RescheduleMessage(ap *models.Appointment, shop *models.Barbershop, svc *models.Service, client *models.Client) Message {
	when := appointmentTime(ap, shop)
	return Message{
		Subject: fmt.Sprintf("Your appointment at %s was rescheduled", shop.Name),
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour %s at %s has been moved to %s.\n\n%s",
			client.Name, svc.Name, shop.Name, when, shop.Name,
		),
	}
}

func CampaignMessage(campaign *models.MarketingCampaign, client *models.Client) Message {
	return Message{
		Subject: campaign.Subject,
		Body:    fmt.Sprintf("Hi %s,\n\n%s", client.Name, campaign.Body),
	}
}
