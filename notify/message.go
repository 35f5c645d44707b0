package notify

import "fmt"

// =============================================================================
// MESSAGE TEMPLATES - Payment reminder copy per channel
// =============================================================================

// ReminderSMS is the short-form payment reminder.
func ReminderSMS(name string, daysUntilDue int) string {
	return fmt.Sprintf(
		"Hi %s! Friendly reminder: Your garbage collection payment is due in %d days. "+
			"Pay now to avoid service interruption. Thank you! EcoRewards",
		name, daysUntilDue)
}

// ReminderEmailSubject is the email subject line for a payment reminder.
func ReminderEmailSubject(daysUntilDue int) string {
	return fmt.Sprintf("Payment Reminder - Due in %d Days", daysUntilDue)
}

// ReminderEmailBody is the HTML body for a payment reminder.
func ReminderEmailBody(name string, daysUntilDue int) string {
	return fmt.Sprintf(
		`<h2>Payment Reminder</h2>
<p>Hi <strong>%s</strong>,</p>
<p>This is a friendly reminder that your garbage collection payment is due in <strong>%d days</strong>.</p>
<p>Please make your payment to ensure uninterrupted waste collection services.</p>
<p>Thank you for helping us keep our community clean!</p>`,
		name, daysUntilDue)
}

// reminderMessage builds the per-channel message for a payment reminder.
func reminderMessage(ch Channel, contact Contact, daysUntilDue int) string {
	if ch == ChannelEmail {
		return ReminderEmailBody(contact.Name, daysUntilDue)
	}
	return ReminderSMS(contact.Name, daysUntilDue)
}
