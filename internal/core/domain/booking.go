package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel is the platform a booking came through.
type Channel string

// Known channels.
const (
	ChannelBookingCom  Channel = "booking.com"
	ChannelAirbnb      Channel = "airbnb"
	ChannelExpedia     Channel = "expedia"
	ChannelAgoda       Channel = "agoda"
	ChannelHostelworld Channel = "hostelworld"
	ChannelOstrovok    Channel = "ostrovok"
	ChannelSutochno    Channel = "sutochno"
	ChannelBronevik    Channel = "bronevik"
	ChannelTvil        Channel = "tvil"
	ChannelDirect      Channel = "direct"
	ChannelOther       Channel = "other"
)

// ChannelNames returns all channel values, for schema enums.
func ChannelNames() []string {
	return []string{
		string(ChannelBookingCom), string(ChannelAirbnb), string(ChannelExpedia),
		string(ChannelAgoda), string(ChannelHostelworld), string(ChannelOstrovok),
		string(ChannelSutochno), string(ChannelBronevik), string(ChannelTvil),
		string(ChannelDirect), string(ChannelOther),
	}
}

// IsValid returns true if the channel is recognised.
func (c Channel) IsValid() bool {
	for _, name := range ChannelNames() {
		if string(c) == name {
			return true
		}
	}
	return false
}

// channelSenders maps sender domains to channels. Order matters for lookups.
var channelSenders = []struct {
	domain  string
	channel Channel
}{
	{"booking.com", ChannelBookingCom},
	{"airbnb.com", ChannelAirbnb},
	{"expedia.com", ChannelExpedia},
	{"agoda.com", ChannelAgoda},
	{"hostelworld.com", ChannelHostelworld},
	{"ostrovok.ru", ChannelOstrovok},
	{"sutochno.com", ChannelSutochno},
	{"bronevik.com", ChannelBronevik},
	{"tvil.ru", ChannelTvil},
}

// ChannelForSender returns the travel platform for a sender address.
// The second result is false when the sender is not a known platform.
func ChannelForSender(sender string) (Channel, bool) {
	s := strings.ToLower(sender)
	for _, cs := range channelSenders {
		if strings.Contains(s, cs.domain) {
			return cs.channel, true
		}
	}
	return "", false
}

// TravelPlatformDomains returns the sender domains of known travel platforms.
func TravelPlatformDomains() []string {
	out := make([]string, len(channelSenders))
	for i, cs := range channelSenders {
		out[i] = cs.domain
	}
	return out
}

// BookingStatus is the lifecycle state reported by a confirmation.
type BookingStatus string

// Booking statuses.
const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingPending   BookingStatus = "pending"
	BookingCancelled BookingStatus = "cancelled"
)

// BookingStatusNames returns all booking status values, for schema enums.
func BookingStatusNames() []string {
	return []string{string(BookingConfirmed), string(BookingPending), string(BookingCancelled)}
}

// IsValid returns true if the status is recognised.
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingConfirmed, BookingPending, BookingCancelled:
		return true
	default:
		return false
	}
}

// DateLayout is the calendar date format used for stays and reports.
const DateLayout = "2006-01-02"

// ExtractedBooking is a reservation recovered from a confirmation message.
// ExternalID is unique across the reservation store.
type ExtractedBooking struct {
	ID         string
	MessageID  string
	ExternalID string
	GuestName  string
	CheckIn    time.Time
	CheckOut   time.Time
	Channel    Channel
	Status     BookingStatus

	RoomID      string
	Price       float64
	Currency    string
	GuestEmail  string
	GuestPhone  string
	PartySize   int
	Notes       string
	ExtractedAt time.Time
}

// Validate reports whether every required field is populated.
// A booking that fails validation must not be persisted.
func (b *ExtractedBooking) Validate() error {
	var missing []string
	if strings.TrimSpace(b.GuestName) == "" {
		missing = append(missing, "guest name")
	}
	if b.CheckIn.IsZero() {
		missing = append(missing, "check-in")
	}
	if b.CheckOut.IsZero() {
		missing = append(missing, "check-out")
	}
	if !b.Channel.IsValid() {
		missing = append(missing, "channel")
	}
	if strings.TrimSpace(b.ExternalID) == "" {
		missing = append(missing, "booking id")
	}
	if !b.Status.IsValid() {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrContractViolation, strings.Join(missing, ", "))
	}
	if b.CheckOut.Before(b.CheckIn) {
		return fmt.Errorf("%w: check-out before check-in", ErrContractViolation)
	}
	return nil
}

// Nights returns the number of nights between check-in and check-out.
func (b *ExtractedBooking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}
