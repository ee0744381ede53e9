package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/wellnessreal/internal/model"
)

var now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func proposalIn(status model.ProposalStatus) *model.Proposal {
	return &model.Proposal{Status: status, Version: 1}
}

func TestView(t *testing.T) {
	patch := View(proposalIn(model.ProposalStatusPending), now)
	require.NotNil(t, patch.Status)
	assert.Equal(t, model.ProposalStatusViewed, *patch.Status)
	assert.Equal(t, now, *patch.ViewedAt)

	for _, s := range []model.ProposalStatus{
		model.ProposalStatusViewed,
		model.ProposalStatusSigned,
		model.ProposalStatusPaid,
	} {
		assert.True(t, View(proposalIn(s), now).Empty(), "status %s", s)
	}
}

func TestSign(t *testing.T) {
	tests := []struct {
		name    string
		status  model.ProposalStatus
		wantErr bool
	}{
		{name: "from pending", status: model.ProposalStatusPending},
		{name: "from viewed", status: model.ProposalStatusViewed},
		{name: "already signed", status: model.ProposalStatusSigned, wantErr: true},
		{name: "payment pending", status: model.ProposalStatusPaymentPending, wantErr: true},
		{name: "paid", status: model.ProposalStatusPaid, wantErr: true},
		{name: "confirmed", status: model.ProposalStatusConfirmed, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, err := Sign(proposalIn(tt.status), "Ana Pérez", "10.0.0.1", now)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
				assert.True(t, patch.Empty())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.ProposalStatusSigned, *patch.Status)
			assert.Equal(t, "Ana Pérez", *patch.SignatureFullName)
			assert.Equal(t, "10.0.0.1", *patch.SignatureIP)
			assert.Equal(t, now, *patch.SignedAt)
		})
	}
}

func TestChooseTransfer(t *testing.T) {
	patch, err := ChooseTransfer(proposalIn(model.ProposalStatusSigned), now)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusPaymentPending, *patch.Status)
	assert.Equal(t, model.PaymentMethodTransfer, *patch.PaymentMethod)
	assert.Equal(t, now, *patch.TransferMarkedAt)

	_, err = ChooseTransfer(proposalIn(model.ProposalStatusViewed), now)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "the contract must be signed first", te.Reason)

	_, err = ChooseTransfer(proposalIn(model.ProposalStatusPaid), now)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStartCheckout(t *testing.T) {
	patch, err := StartCheckout(proposalIn(model.ProposalStatusSigned), "cs_test_1")
	require.NoError(t, err)
	assert.Nil(t, patch.Status)
	assert.Equal(t, model.PaymentMethodStripe, *patch.PaymentMethod)
	assert.Equal(t, "cs_test_1", *patch.StripeSessionID)

	_, err = StartCheckout(proposalIn(model.ProposalStatusPaymentPending), "cs_test_1")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStartCheckout_SameSessionIsNoOp(t *testing.T) {
	p := proposalIn(model.ProposalStatusSigned)
	p.PaymentMethod = ptr(model.PaymentMethodStripe)
	p.StripeSessionID = ptr("cs_test_1")

	patch, err := StartCheckout(p, "cs_test_1")
	require.NoError(t, err)
	assert.True(t, patch.Empty())

	patch, err = StartCheckout(p, "cs_test_2")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_2", *patch.StripeSessionID)
}

func TestMarkPaid(t *testing.T) {
	t.Run("signed fast path", func(t *testing.T) {
		patch, err := MarkPaid(proposalIn(model.ProposalStatusSigned), "pi_123", now)
		require.NoError(t, err)
		assert.Equal(t, model.ProposalStatusPaid, *patch.Status)
		assert.Equal(t, model.ConfirmedByStripeWebhook, *patch.ConfirmedBy)
		assert.Equal(t, now, *patch.PaidAt)
		assert.Equal(t, "pi_123", *patch.StripePaymentIntentID)
	})

	t.Run("from payment pending", func(t *testing.T) {
		patch, err := MarkPaid(proposalIn(model.ProposalStatusPaymentPending), "pi_9", now)
		require.NoError(t, err)
		assert.Equal(t, model.ProposalStatusPaid, *patch.Status)
	})

	t.Run("replay is a no-op", func(t *testing.T) {
		p := proposalIn(model.ProposalStatusPaid)
		paidAt := now.Add(-time.Hour)
		p.PaidAt = &paidAt
		patch, err := MarkPaid(p, "pi_123", now)
		require.NoError(t, err)
		assert.True(t, patch.Empty())
	})

	t.Run("after manual confirmation", func(t *testing.T) {
		p := proposalIn(model.ProposalStatusConfirmed)
		p.PaidAt = &now
		patch, err := MarkPaid(p, "pi_123", now)
		require.NoError(t, err)
		assert.True(t, patch.Empty())
	})

	t.Run("unsigned", func(t *testing.T) {
		_, err := MarkPaid(proposalIn(model.ProposalStatusViewed), "pi_123", now)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestConfirm(t *testing.T) {
	t.Run("transfer path", func(t *testing.T) {
		patch, err := Confirm(proposalIn(model.ProposalStatusPaymentPending), now)
		require.NoError(t, err)
		assert.Equal(t, model.ProposalStatusConfirmed, *patch.Status)
		assert.Equal(t, model.ConfirmedByAdminManual, *patch.ConfirmedBy)
		assert.Equal(t, now, *patch.PaidAt)
		assert.Equal(t, now, *patch.ConfirmedAt)
	})

	t.Run("keeps webhook payment record", func(t *testing.T) {
		p := proposalIn(model.ProposalStatusPaid)
		paidAt := now.Add(-time.Hour)
		by := model.ConfirmedByStripeWebhook
		p.PaidAt = &paidAt
		p.ConfirmedBy = &by

		patch, err := Confirm(p, now)
		require.NoError(t, err)
		assert.Equal(t, model.ProposalStatusConfirmed, *patch.Status)
		assert.Nil(t, patch.PaidAt)
		assert.Nil(t, patch.ConfirmedBy)
	})

	t.Run("escape hatch from pending", func(t *testing.T) {
		patch, err := Confirm(proposalIn(model.ProposalStatusPending), now)
		require.NoError(t, err)
		assert.Equal(t, model.ProposalStatusConfirmed, *patch.Status)
	})

	t.Run("double confirmation", func(t *testing.T) {
		_, err := Confirm(proposalIn(model.ProposalStatusConfirmed), now)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestForward(t *testing.T) {
	assert.True(t, Forward(model.ProposalStatusPending, model.ProposalStatusViewed))
	assert.True(t, Forward(model.ProposalStatusSigned, model.ProposalStatusPaid))
	assert.False(t, Forward(model.ProposalStatusPaid, model.ProposalStatusSigned))
	assert.False(t, Forward("unknown", model.ProposalStatusPaid))
}
