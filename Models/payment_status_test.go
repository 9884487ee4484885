package Models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentStatusClaimDenyClaimVerify(t *testing.T) {
	status := PaymentStatus{}
	assert.Equal(t, PaymentUnclaimed, status.State())

	steps := []struct {
		action PaymentAction
		want   PaymentStatus
	}{
		{ActionClaim, PaymentStatus{Claimed: true, Verified: false}},
		{ActionDeny, PaymentStatus{Claimed: false, Verified: false}},
		{ActionClaim, PaymentStatus{Claimed: true, Verified: false}},
		{ActionVerify, PaymentStatus{Claimed: true, Verified: true}},
	}
	for _, step := range steps {
		next, err := status.Apply(step.action)
		require.NoError(t, err, "action %s", step.action)
		assert.Equal(t, step.want, next, "after %s", step.action)
		status = next
	}
	assert.Equal(t, PaymentVerified, status.State())
}

func TestPaymentStatusRejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name   string
		from   PaymentStatus
		action PaymentAction
	}{
		{"verify from unclaimed", PaymentStatus{}, ActionVerify},
		{"deny from unclaimed", PaymentStatus{}, ActionDeny},
		{"claim twice", PaymentStatus{Claimed: true}, ActionClaim},
		{"claim after verified", PaymentStatus{Claimed: true, Verified: true}, ActionClaim},
		{"deny after verified", PaymentStatus{Claimed: true, Verified: true}, ActionDeny},
		{"verify twice", PaymentStatus{Claimed: true, Verified: true}, ActionVerify},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.from.CanApply(tt.action))
			next, err := tt.from.Apply(tt.action)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, next)
		})
	}
}

func TestPaymentStatusVerifiedImpliesClaimed(t *testing.T) {
	actions := []PaymentAction{ActionClaim, ActionVerify, ActionDeny}
	seen := map[PaymentStatus]bool{{}: true}
	frontier := []PaymentStatus{{}}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		for _, a := range actions {
			next, err := current.Apply(a)
			if err != nil {
				continue
			}
			if !seen[next] {
				seen[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	for status := range seen {
		if status.Verified {
			assert.True(t, status.Claimed, "reachable %+v", status)
		}
	}
	assert.Len(t, seen, 3)
}

func TestPaymentStatusInconsistentRecordReadsAsUnclaimed(t *testing.T) {
	status := PaymentStatus{Verified: true}
	assert.Equal(t, PaymentUnclaimed, status.State())
	next, err := status.Apply(ActionClaim)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatus{Claimed: true}, next)
}

func TestPaymentStatusWithholds(t *testing.T) {
	assert.False(t, PaymentStatus{}.Withholds(true))
	assert.False(t, PaymentStatus{Claimed: true}.Withholds(false))
	assert.True(t, PaymentStatus{Claimed: true}.Withholds(true))
	assert.False(t, PaymentStatus{Claimed: true, Verified: true}.Withholds(true))
}
