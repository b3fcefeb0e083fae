//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/usecase"
)

func newPortalUC(b *MockBackend, sessions *memSessionStore) usecase.PortalUseCase {
	log := newTestLogger()
	payments := usecase.NewPaymentUseCase(b, nil, log, false)
	return usecase.NewPortalUseCase(b, sessions, &MockBridge{}, payments, nil, log)
}

func TestPortalUseCase_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("should not call the backend without a MAC", func(t *testing.T) {
		// --- Arrange ---
		b := newMockBackend()
		b.AddPlan(model.Plan{Name: "Daily"})
		uc := newPortalUC(b, newMemSessionStore())

		// --- Act ---
		view, err := uc.Check(ctx, model.NewSession("s1"))

		// --- Assert ---
		if err != nil {
			t.Fatal(err)
		}
		if b.CallCount("HotspotStatus") != 0 {
			t.Error("hotspot status must not be requested without a MAC")
		}
		if view.Message != usecase.MsgNoDevice || view.Stage != model.PortalInactive {
			t.Errorf("unexpected view %+v", view)
		}
		if len(view.Plans) != 1 {
			t.Errorf("expected the purchase UI plans, got %d", len(view.Plans))
		}
	})

	t.Run("should log an active device into the router with server credentials", func(t *testing.T) {
		b := newMockBackend()
		b.SetDevice("AA:BB", model.HotspotStatus{Active: true, Username: "srv-user", Password: "srv-pass"})
		sess := model.NewSession("s1")
		sess.ResetPortal(model.PortalParams{MAC: "AA:BB", LinkLogin: "http://10.5.50.1/login"})

		view, err := newPortalUC(b, newMemSessionStore()).Check(ctx, sess)

		if err != nil {
			t.Fatal(err)
		}
		if view.Stage != model.PortalActive || view.Login == nil {
			t.Fatalf("expected router login, got %+v", view)
		}
		if view.Login.Username != "srv-user" || view.Login.Password != "srv-pass" {
			t.Errorf("unexpected credentials %+v", view.Login)
		}
	})

	t.Run("should report an authorized device when the bridge declines", func(t *testing.T) {
		b := newMockBackend()
		b.SetDevice("AA:BB", model.HotspotStatus{Active: true, Username: "u", Password: "p"})
		sess := model.NewSession("s1")
		sess.ResetPortal(model.PortalParams{MAC: "AA:BB"})

		view, _ := newPortalUC(b, newMemSessionStore()).Check(ctx, sess)

		if view.Login != nil || view.Message != usecase.MsgDevAuthorized {
			t.Errorf("unexpected view %+v", view)
		}
	})

	t.Run("should clear tokens for an inactive device", func(t *testing.T) {
		b := newMockBackend()
		sessions := newMemSessionStore()
		sess := authenticatedSession("s1")
		sess.ResetPortal(model.PortalParams{MAC: "AA:BB"})

		view, err := newPortalUC(b, sessions).Check(ctx, sess)

		if err != nil {
			t.Fatal(err)
		}
		if sess.IsAuthenticated() || sess.Tokens != nil {
			t.Error("tokens should be cleared")
		}
		if stored, _ := sessions.Get(ctx, "s1"); stored == nil || stored.Tokens != nil {
			t.Error("cleared session not persisted")
		}
		if view.Message != usecase.MsgInactive {
			t.Errorf("unexpected message %q", view.Message)
		}
	})

	t.Run("should fail open to guest mode when the status check errors", func(t *testing.T) {
		b := newMockBackend()
		b.HotspotStatusFunc = func(ctx context.Context, mac string) (*model.HotspotStatus, error) {
			return nil, domain.ErrTransport
		}
		sess := authenticatedSession("s1")
		sess.ResetPortal(model.PortalParams{MAC: "AA:BB"})

		view, err := newPortalUC(b, newMemSessionStore()).Check(ctx, sess)

		if err != nil {
			t.Fatalf("check should not fail: %v", err)
		}
		if sess.Tokens != nil {
			t.Error("tokens should be cleared on failure")
		}
		if view.Message != usecase.MsgWelcome || view.Stage != model.PortalInactive {
			t.Errorf("unexpected view %+v", view)
		}
	})
}

func TestPortalUseCase_Buy(t *testing.T) {
	ctx := context.Background()

	t.Run("should initiate as a guest with the captured MAC and never poll", func(t *testing.T) {
		// --- Arrange ---
		b := newMockBackend()
		p := b.AddPlan(model.Plan{Name: "Daily"})
		var got model.InitiatePayment
		b.InitiatePaymentFunc = func(ctx context.Context, accessToken string, in model.InitiatePayment) (int64, error) {
			got = in
			return 77, nil
		}
		sess := authenticatedSession("s1")
		sess.ResetPortal(model.PortalParams{MAC: "AA:BB"})

		// --- Act ---
		view, err := newPortalUC(b, newMemSessionStore()).Buy(ctx, sess, p.ID, "+254 700-000-000")

		// --- Assert ---
		if err != nil {
			t.Fatal(err)
		}
		if view.Stage != model.PortalPaymentSent || view.Message != usecase.MsgPaymentSent {
			t.Errorf("unexpected view %+v", view)
		}
		if tokens := b.TokensSeen("InitiatePayment"); len(tokens) != 1 || tokens[0] != "" {
			t.Errorf("expected one guest initiation, got %q", tokens)
		}
		if got.MACAddress != "AA:BB" || got.PhoneNumber != "254700000000" {
			t.Errorf("unexpected payload %+v", got)
		}
		if len(b.TokensSeen("PaymentStatus")) != 0 {
			t.Error("portal purchase must not poll")
		}
	})

	t.Run("should validate before calling the backend", func(t *testing.T) {
		b := newMockBackend()
		_, err := newPortalUC(b, newMemSessionStore()).Buy(ctx, model.NewSession("s1"), 0, "254700000000")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if b.CallCount("InitiatePayment") != 0 {
			t.Error("no initiation expected")
		}
	})
}
