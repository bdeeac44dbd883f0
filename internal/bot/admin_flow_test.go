package bot

import (
	"context"
	"strings"
	"testing"

	"filemarket-bot/internal/bot/states"
)

func TestListingFlow_EndToEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const admin, chat = int64(1), int64(100)

	f.bot.processMessage(ctx, cmdMsg(admin, chat, "/newfile"))

	if got := f.dialogs.states[admin].Step; got != states.StepAwaitingFile {
		t.Fatalf("after /newfile step = %s, want %s", got, states.StepAwaitingFile)
	}

	f.bot.processMessage(ctx, docMsg(admin, chat, "file-abc"))

	state := f.dialogs.states[admin]
	if state.Step != states.StepAwaitingPrice {
		t.Fatalf("after file step = %s, want %s", state.Step, states.StepAwaitingPrice)
	}
	if state.Draft.FileID != "file-abc" || state.Draft.Kind != states.KindDocument {
		t.Fatalf("draft not captured: %+v", state.Draft)
	}

	f.bot.processMessage(ctx, textMsg(admin, chat, "1500"))

	state = f.dialogs.states[admin]
	if state.Step != states.StepAwaitingCaption {
		t.Fatalf("after price step = %s, want %s", state.Step, states.StepAwaitingCaption)
	}
	if state.Draft.Price != 1500 {
		t.Fatalf("draft price = %d, want 1500", state.Draft.Price)
	}

	f.bot.processMessage(ctx, textMsg(admin, chat, "Great ebook"))

	if len(f.ledger.listings) != 1 {
		t.Fatalf("listings = %d, want 1", len(f.ledger.listings))
	}
	for publicID, listing := range f.ledger.listings {
		if len(publicID) != listingIDLength {
			t.Errorf("public id %q length = %d, want %d", publicID, len(publicID), listingIDLength)
		}
		if listing.Price != 1500 {
			t.Errorf("listing price = %d, want 1500", listing.Price)
		}
		if listing.Caption != "Great ebook" {
			t.Errorf("listing caption = %q, want %q", listing.Caption, "Great ebook")
		}
		if listing.FileID != "file-abc" {
			t.Errorf("listing file id = %q, want %q", listing.FileID, "file-abc")
		}
		if listing.SourceChatID != chat || listing.MessageID != 77 {
			t.Errorf("listing source = (%d, %d), want (%d, 77)", listing.SourceChatID, listing.MessageID, chat)
		}
	}

	if _, ok := f.dialogs.states[admin]; ok {
		t.Error("dialog state not cleared after listing creation")
	}
	if !strings.Contains(f.lastMessage(), "/buy ") {
		t.Errorf("confirmation %q missing the /buy hint", f.lastMessage())
	}
}

func TestListingFlow_InvalidPriceStaysInState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const admin, chat = int64(1), int64(100)

	f.bot.processMessage(ctx, cmdMsg(admin, chat, "/newfile"))
	f.bot.processMessage(ctx, docMsg(admin, chat, "file-abc"))

	for _, text := range []string{"abc", "-5", "0", "1.5", ""} {
		f.bot.processMessage(ctx, textMsg(admin, chat, text))

		state := f.dialogs.states[admin]
		if state.Step != states.StepAwaitingPrice {
			t.Fatalf("after %q step = %s, want %s", text, state.Step, states.StepAwaitingPrice)
		}
		if state.Draft.Price != 0 {
			t.Fatalf("after %q draft price = %d, want 0", text, state.Draft.Price)
		}
	}

	if len(f.ledger.listings) != 0 {
		t.Errorf("listings = %d, want 0", len(f.ledger.listings))
	}
}

func TestListingFlow_NoFileReprompts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const admin, chat = int64(1), int64(100)

	f.bot.processMessage(ctx, cmdMsg(admin, chat, "/newfile"))
	f.bot.processMessage(ctx, textMsg(admin, chat, "here is some text instead"))

	if got := f.dialogs.states[admin].Step; got != states.StepAwaitingFile {
		t.Fatalf("step = %s, want %s", got, states.StepAwaitingFile)
	}
	if !strings.Contains(f.lastMessage(), "no file attached") {
		t.Errorf("reprompt = %q", f.lastMessage())
	}
}

func TestListingFlow_NewfileRestartsMidFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const admin, chat = int64(1), int64(100)

	f.bot.processMessage(ctx, cmdMsg(admin, chat, "/newfile"))
	f.bot.processMessage(ctx, docMsg(admin, chat, "file-abc"))
	f.bot.processMessage(ctx, cmdMsg(admin, chat, "/newfile"))

	state := f.dialogs.states[admin]
	if state.Step != states.StepAwaitingFile {
		t.Fatalf("step = %s, want %s", state.Step, states.StepAwaitingFile)
	}
	if state.Draft.FileID != "" {
		t.Errorf("draft not discarded on restart: %+v", state.Draft)
	}
}

func TestListingFlow_CancelClearsState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const admin, chat = int64(1), int64(100)

	f.bot.processMessage(ctx, cmdMsg(admin, chat, "/newfile"))
	f.bot.processMessage(ctx, cmdMsg(admin, chat, "/cancel"))

	if _, ok := f.dialogs.states[admin]; ok {
		t.Error("dialog state survived /cancel")
	}
}

func TestListingFlow_NonAdminRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.bot.processMessage(ctx, cmdMsg(2, 200, "/newfile"))

	if _, ok := f.dialogs.states[2]; ok {
		t.Error("non-admin got a dialog state")
	}
	if !strings.Contains(f.lastMessage(), "admins only") {
		t.Errorf("reply = %q", f.lastMessage())
	}
}

func TestListingFlow_CommandsRoutedIntoFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const admin, chat = int64(1), int64(100)

	f.bot.processMessage(ctx, cmdMsg(admin, chat, "/newfile"))
	f.bot.processMessage(ctx, docMsg(admin, chat, "file-abc"))

	// Mid-flow, a /buy from the admin is input to the price step, not a purchase.
	f.bot.processMessage(ctx, cmdMsg(admin, chat, "/buy somelisting"))

	if got := f.dialogs.states[admin].Step; got != states.StepAwaitingPrice {
		t.Fatalf("step = %s, want %s", got, states.StepAwaitingPrice)
	}
	if len(f.ledger.orders) != 0 {
		t.Errorf("orders = %d, want 0", len(f.ledger.orders))
	}
}

func TestListingFlow_SaveFailureClearsState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	const admin, chat = int64(1), int64(100)

	f.bot.processMessage(ctx, cmdMsg(admin, chat, "/newfile"))
	f.bot.processMessage(ctx, docMsg(admin, chat, "file-abc"))
	f.bot.processMessage(ctx, textMsg(admin, chat, "1500"))

	// Force the caption step to arrive with an incomplete draft.
	f.dialogs.states[admin].Draft.FileID = ""
	f.bot.processMessage(ctx, textMsg(admin, chat, "Great ebook"))

	if _, ok := f.dialogs.states[admin]; ok {
		t.Error("dialog state not cleared after failed listing creation")
	}
	if len(f.ledger.listings) != 0 {
		t.Errorf("listings = %d, want 0", len(f.ledger.listings))
	}

	state, err := f.dialogs.Dialog(ctx, admin)
	if err != nil {
		t.Fatalf("Dialog: %v", err)
	}
	if state.Step != states.StepNone {
		t.Errorf("step after clear = %s, want %s", state.Step, states.StepNone)
	}
}
