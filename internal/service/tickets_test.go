package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PRAHARSHITH-789/gala-backend/internal/model"
)

func TestTicketGate_JazzNightScenario(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)

	a, err := f.bookings.Create(ctx, f.ana, model.CreateBookingRequest{Event: "jazz", TicketType: "VIP", TicketsBooked: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, f.db.remaining("jazz", "VIP"))

	_, err = f.bookings.Create(ctx, f.bob, model.CreateBookingRequest{Event: "jazz", TicketType: "VIP", TicketsBooked: 1})
	require.ErrorIs(t, err, model.ErrInsufficientInventory)
	assert.Equal(t, 0, f.db.remaining("jazz", "VIP"))

	first, err := f.gate.Verify(ctx, f.org, a.QRToken)
	require.NoError(t, err)
	assert.True(t, first.QRCodeUsed)
	assert.Equal(t, model.BookingAttended, first.Status)
	require.NotNil(t, first.QRCodeScannedAt)
	scannedAt := *first.QRCodeScannedAt

	f.clock.Advance(5 * time.Minute)
	_, err = f.gate.Verify(ctx, f.admin, a.QRToken)
	require.ErrorIs(t, err, model.ErrAlreadyScanned)
	var replay *model.AlreadyScannedError
	require.True(t, errors.As(err, &replay))
	assert.Equal(t, scannedAt, replay.ScannedAt, "replays do not move the scan time")
	assert.Equal(t, a.ID, replay.Booking.ID)
}

func TestTicketGate_ConcurrentScans(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)
	b, err := f.bookings.Create(ctx, f.ana, model.CreateBookingRequest{Event: "jazz", TicketType: "General", TicketsBooked: 2})
	require.NoError(t, err)

	const scanners = 12
	var wg sync.WaitGroup
	results := make(chan error, scanners)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.gate.Verify(ctx, f.org, b.QRToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, model.ErrAlreadyScanned)
	}
	assert.Equal(t, 1, wins)
}

func TestTicketGate_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)
	b, err := f.bookings.Create(ctx, f.ana, model.CreateBookingRequest{Event: "jazz", TicketType: "General", TicketsBooked: 1})
	require.NoError(t, err)

	t.Run("only the organizer or an admin scans", func(t *testing.T) {
		_, err := f.gate.Verify(ctx, f.ana, b.QRToken)
		assert.ErrorIs(t, err, model.ErrForbidden)
		_, err = f.gate.Verify(ctx, model.Principal{}, b.QRToken)
		assert.ErrorIs(t, err, model.ErrUnauthorized)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.gate.Verify(ctx, f.org, "definitely.not.jwt")
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("signed token not bound to the booking", func(t *testing.T) {
		stray, err := f.signer.Issue(b.ID, f.clock.Now())
		require.NoError(t, err)
		_, err = f.gate.Verify(ctx, f.org, stray)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("signed token for an unknown booking", func(t *testing.T) {
		stray, err := f.signer.Issue("missing", f.clock.Now())
		require.NoError(t, err)
		_, err = f.gate.Verify(ctx, f.org, stray)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	got, err := f.bookings.Get(ctx, f.ana, b.ID)
	require.NoError(t, err)
	assert.False(t, got.QRCodeUsed, "rejected scans leave the ticket unused")
}

func TestTicketGate_LookupAndRender(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)
	b, err := f.bookings.Create(ctx, f.ana, model.CreateBookingRequest{Event: "jazz", TicketType: "General", TicketsBooked: 2})
	require.NoError(t, err)

	view, err := f.gate.Lookup(ctx, b.QRToken)
	require.NoError(t, err)
	assert.Equal(t, "Ana", view.UserName)
	assert.Equal(t, 2, view.TicketsBooked)
	assert.False(t, view.QRCodeUsed)

	assert.Equal(t, "https://gala.example/verify/"+b.QRToken, f.gate.VerifyURL(b.QRToken))

	png, err := f.gate.BookingQR(ctx, f.ana, b.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = f.gate.BookingQR(ctx, f.bob, b.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.gate.BookingQR(ctx, f.org, b.ID)
	assert.NoError(t, err)

	dataURL, err := f.gate.DataURL(b.QRToken)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))
}
