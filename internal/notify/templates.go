package notify

import (
	"fmt"
	"html"
	"time"

	"bayfront/internal/models"
)

const dateFormat = "Monday, January 2, 2006"

// bookingTable renders the stay details shared by most messages. All
// guest-supplied values pass through html.EscapeString.
func bookingTable(b *models.BookingRequest) string {
	rows := fmt.Sprintf(`
		<tr><td><b>Guest</b></td><td>%s</td></tr>
		<tr><td><b>Email</b></td><td>%s</td></tr>
		<tr><td><b>Check-in</b></td><td>%s</td></tr>
		<tr><td><b>Check-out</b></td><td>%s</td></tr>
		<tr><td><b>Nights</b></td><td>%d</td></tr>
		<tr><td><b>Guests</b></td><td>%d</td></tr>`,
		html.EscapeString(b.GuestName),
		html.EscapeString(b.GuestEmail),
		b.StartDate.Format(dateFormat),
		b.EndDate.Format(dateFormat),
		b.DurationNights(),
		b.NumGuests)
	if b.GuestPhone != "" {
		rows += fmt.Sprintf(`
		<tr><td><b>Phone</b></td><td>%s</td></tr>`, html.EscapeString(b.GuestPhone))
	}
	if b.SpecialRequests != "" {
		rows += fmt.Sprintf(`
		<tr><td><b>Special requests</b></td><td>%s</td></tr>`, html.EscapeString(b.SpecialRequests))
	}
	return "<table cellpadding=\"4\">" + rows + "\n\t</table>"
}

func adminSubmittedBody(b *models.BookingRequest, approveURL, rejectURL string) string {
	return fmt.Sprintf(`<h2>New booking request #%d</h2>
%s
<p>
	<a href="%s" style="padding:10px 20px;background:#2e7d32;color:#fff;text-decoration:none;">Approve</a>
	&nbsp;
	<a href="%s" style="padding:10px 20px;background:#c62828;color:#fff;text-decoration:none;">Reject</a>
</p>
<p>These links expire; late decisions need a fresh request from the guest.</p>`,
		b.ID, bookingTable(b), approveURL, rejectURL)
}

func guestReceivedBody(b *models.BookingRequest, statusURL string) string {
	return fmt.Sprintf(`<h2>We received your booking request</h2>
<p>Hi %s, thanks for your request. It is awaiting approval; you will hear from us soon.</p>
%s
<p>You can check the status of your request any time: <a href="%s">%s</a></p>`,
		html.EscapeString(b.GuestName), bookingTable(b), statusURL, statusURL)
}

func guestConfirmedBody(b *models.BookingRequest) string {
	return fmt.Sprintf(`<h2>Your booking is confirmed!</h2>
<p>Hi %s, your stay is booked. Check-in is at 3:00 PM and check-out at 11:00 AM.</p>
%s
<p>We look forward to hosting you.</p>`,
		html.EscapeString(b.GuestName), bookingTable(b))
}

func guestRejectedBody(b *models.BookingRequest) string {
	body := fmt.Sprintf(`<h2>About your booking request</h2>
<p>Hi %s, unfortunately we cannot accommodate your request for these dates.</p>
%s`,
		html.EscapeString(b.GuestName), bookingTable(b))
	if b.RejectionReason != "" {
		body += fmt.Sprintf("\n<p>Note from the host: %s</p>", html.EscapeString(b.RejectionReason))
	}
	return body
}

func stakeholderConfirmedBody(b *models.BookingRequest) string {
	return fmt.Sprintf(`<h2>Booking confirmed: %s</h2>
%s
<p>The stay has been added to the property calendar.</p>`,
		html.EscapeString(b.GuestName), bookingTable(b))
}

func degradedBody(b *models.BookingRequest, createErr error) string {
	return fmt.Sprintf(`<h2>Action needed: booking #%d approved but not calendared</h2>
%s
<p>The approval went through but the calendar event could not be created:</p>
<pre>%s</pre>
<p>Create the event manually or re-run the approval.</p>`,
		b.ID, bookingTable(b), html.EscapeString(createErr.Error()))
}

func eventDeletedBody(b *models.BookingRequest) string {
	return fmt.Sprintf(`<h2>Calendar event removed for booking #%d</h2>
%s
<p>The calendar event backing this confirmed booking no longer exists.
If the cancellation was intentional, let the guest know; otherwise restore the event.</p>`,
		b.ID, bookingTable(b))
}

func eventModifiedBody(b *models.BookingRequest, newStart, newEnd time.Time) string {
	return fmt.Sprintf(`<h2>Calendar event dates changed for booking #%d</h2>
%s
<p>The event now runs <b>%s</b> to <b>%s</b>, which no longer matches the booking.</p>`,
		b.ID, bookingTable(b),
		newStart.Format(dateFormat), newEnd.Format(dateFormat))
}

func guestEventModifiedBody(b *models.BookingRequest, newStart, newEnd time.Time) string {
	return fmt.Sprintf(`<h2>Your booking dates have changed</h2>
<p>Hi %s, the dates of your stay were updated by the host.</p>
<p>Your stay now runs <b>%s</b> to <b>%s</b>.</p>
<p>If this is unexpected, please reply to this email.</p>`,
		html.EscapeString(b.GuestName),
		newStart.Format(dateFormat), newEnd.Format(dateFormat))
}

func guestEventDeletedBody(b *models.BookingRequest) string {
	return fmt.Sprintf(`<h2>About your upcoming stay</h2>
<p>Hi %s, your booking from %s to %s appears to have been cancelled by the host.</p>
<p>If this is unexpected, please reply to this email.</p>`,
		html.EscapeString(b.GuestName),
		b.StartDate.Format(dateFormat), b.EndDate.Format(dateFormat))
}
