package mailbox

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/charset"

	"github.com/codefuturist/mailwatch/internal/model"
)

// PasswordFunc resolves the password for an account name.
type PasswordFunc func(account string) (string, error)

// IMAPClient implements Client against IMAP servers using go-imap v2.
// Request/response operations dial a fresh connection per call; push
// sessions hold their own dedicated connection.
type IMAPClient struct {
	accounts map[string]model.AccountConfig
	password PasswordFunc
}

// NewIMAPClient creates a client for the configured accounts.
func NewIMAPClient(accounts []model.AccountConfig, password PasswordFunc) *IMAPClient {
	m := make(map[string]model.AccountConfig, len(accounts))
	for _, a := range accounts {
		m[a.Name] = a
	}
	return &IMAPClient{accounts: m, password: password}
}

// connect dials and authenticates a new connection for the account.
// The caller is responsible for calling Logout on the returned client.
func (c *IMAPClient) connect(
	_ context.Context,
	account string,
	opts *imapclient.Options,
) (*imapclient.Client, error) {
	cfg, ok := c.accounts[account]
	if !ok {
		return nil, fmt.Errorf("unknown account %q", account)
	}

	if opts == nil {
		opts = &imapclient.Options{}
	}
	opts.WordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

	addr := cfg.Host + ":" + cfg.Port

	var client *imapclient.Client
	var err error
	if cfg.TLS {
		client, err = imapclient.DialTLS(addr, opts)
	} else {
		client, err = imapclient.DialStartTLS(addr, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	pass, err := c.password(account)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("resolving password for %s: %w", account, err)
	}

	if err := client.Login(cfg.Username, pass).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticating %s: %w", cfg.Username, err)
	}

	return client, nil
}

// OpenPush opens a dedicated IDLE session on one folder.
func (c *IMAPClient) OpenPush(
	ctx context.Context,
	account, folder string,
) (PushSession, error) {
	cfg, ok := c.accounts[account]
	if !ok {
		return nil, fmt.Errorf("unknown account %q", account)
	}

	signal := make(chan struct{}, 1)
	opts := &imapclient.Options{
		UnilateralDataHandler: &imapclient.UnilateralDataHandler{
			Mailbox: func(data *imapclient.UnilateralDataMailbox) {
				if data.NumMessages == nil {
					return
				}
				select {
				case signal <- struct{}{}:
				default:
				}
			},
		},
	}

	client, err := c.connect(ctx, account, opts)
	if err != nil {
		return nil, err
	}

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", folder, err)
	}

	idleTimeout := time.Duration(cfg.IdleTimeoutSec) * time.Second
	if idleTimeout <= 0 {
		idleTimeout = 25 * time.Minute
	}

	return &imapPushSession{
		client:      client,
		signal:      signal,
		idleTimeout: idleTimeout,
	}, nil
}

// imapPushSession wraps one IDLE-capable connection.
type imapPushSession struct {
	client      *imapclient.Client
	signal      chan struct{}
	idleTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Wait blocks in IDLE until the server reports new messages. The IDLE
// command is cycled on idleTimeout so servers don't drop the session.
func (s *imapPushSession) Wait(ctx context.Context) error {
	for {
		idleCmd, err := s.client.Idle()
		if err != nil {
			return fmt.Errorf("starting idle: %w", err)
		}

		timer := time.NewTimer(s.idleTimeout)
		var signaled bool
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = idleCmd.Close()
			_ = idleCmd.Wait()
			return ctx.Err()
		case <-s.signal:
			signaled = true
		case <-timer.C:
		}
		timer.Stop()

		if err := idleCmd.Close(); err != nil {
			return fmt.Errorf("ending idle: %w", err)
		}
		if err := idleCmd.Wait(); err != nil {
			return fmt.Errorf("awaiting idle end: %w", err)
		}

		if signaled {
			return nil
		}
		// Timeout: cycle IDLE and keep waiting.
	}
}

func (s *imapPushSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Logout().Wait()
	})
	return s.closeErr
}

// FetchSince returns summaries for messages with UID above lastUID.
func (c *IMAPClient) FetchSince(
	ctx context.Context,
	account, folder string,
	lastUID uint32,
) ([]model.MessageSummary, error) {
	client, err := c.connect(ctx, account, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", folder, err)
	}

	criteria := &imap.SearchCriteria{
		UID: []imap.UIDSet{{imap.UIDRange{Start: imap.UID(lastUID + 1), Stop: 0}}},
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", folder, err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	uidSet := imap.UIDSetNum(uids...)
	fetchOpts := &imap.FetchOptions{
		Envelope:      true,
		Flags:         true,
		UID:           true,
		BodyStructure: &imap.FetchItemBodyStructure{Extended: true},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var summaries []model.MessageSummary
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		sum := summaryFromBuffer(buf)
		if sum.UID <= lastUID {
			// Servers may return the reference message itself.
			continue
		}
		summaries = append(summaries, sum)
	}

	if err := fetchCmd.Close(); err != nil {
		return summaries, fmt.Errorf("fetching summaries: %w", err)
	}

	return summaries, nil
}

// AddLabel adds a keyword label to a message.
func (c *IMAPClient) AddLabel(
	ctx context.Context, account, folder string, uid uint32, label string,
) error {
	return c.storeFlags(ctx, account, folder, uid, []imap.Flag{imap.Flag(label)}, true)
}

// RemoveLabel removes a keyword label from a message.
func (c *IMAPClient) RemoveLabel(
	ctx context.Context, account, folder string, uid uint32, label string,
) error {
	return c.storeFlags(ctx, account, folder, uid, []imap.Flag{imap.Flag(label)}, false)
}

// SetFlag sets or clears the \Flagged marker.
func (c *IMAPClient) SetFlag(
	ctx context.Context, account, folder string, uid uint32, flagged bool,
) error {
	return c.storeFlags(ctx, account, folder, uid, []imap.Flag{imap.FlagFlagged}, flagged)
}

// MarkRead marks a message as seen.
func (c *IMAPClient) MarkRead(
	ctx context.Context, account, folder string, uid uint32,
) error {
	return c.storeFlags(ctx, account, folder, uid, []imap.Flag{imap.FlagSeen}, true)
}

// storeFlags connects and modifies flags on a single message.
func (c *IMAPClient) storeFlags(
	ctx context.Context,
	account, folder string,
	uid uint32,
	flags []imap.Flag,
	add bool,
) error {
	client, err := c.connect(ctx, account, nil)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", folder, err)
	}

	op := imap.StoreFlagsAdd
	if !add {
		op = imap.StoreFlagsDel
	}

	storeCmd := client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  flags,
	}, nil)

	return storeCmd.Close()
}

// summaryFromBuffer extracts a MessageSummary from a fetch buffer.
func summaryFromBuffer(buf *imapclient.FetchMessageBuffer) model.MessageSummary {
	sum := model.MessageSummary{
		UID: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		sum.Subject = buf.Envelope.Subject
		sum.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			sum.From = model.Address{Name: from.Name, Email: from.Addr()}
		}
		for _, to := range buf.Envelope.To {
			sum.To = append(sum.To, to.Addr())
		}
	}

	for _, flag := range buf.Flags {
		switch flag {
		case imap.FlagSeen:
			sum.Seen = true
		case imap.FlagFlagged:
			sum.Flagged = true
		case imap.FlagAnswered:
			sum.Answered = true
		}
	}

	if buf.BodyStructure != nil {
		sum.HasAttachments = hasAttachments(buf.BodyStructure)
	}

	return sum
}

// hasAttachments walks a body structure looking for attachment parts.
func hasAttachments(bs imap.BodyStructure) bool {
	found := false
	bs.Walk(func(path []int, part imap.BodyStructure) bool {
		sp, ok := part.(*imap.BodyStructureSinglePart)
		if !ok {
			return true
		}
		if disp := sp.Disposition(); disp != nil &&
			strings.EqualFold(disp.Value, "attachment") {
			found = true
			return false
		}
		return true
	})
	return found
}

var _ Client = (*IMAPClient)(nil)
