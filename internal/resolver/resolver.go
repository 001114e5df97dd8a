// Package resolver turns link strings into resolved results, performing at most
// one directory or page-preview lookup per input.
package resolver

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tglink/internal/deeplink"
	"tglink/internal/shared/logger"
	"tglink/internal/shared/types"
)

// Directory maps public names to peer ids. The returned channel may be a live
// stream; Resolver reads only the first value and then cancels ctx.
// A closed channel is treated like a not-found value.
type Directory interface {
	ResolvePeerByName(ctx context.Context, name string) <-chan types.PeerLookup
}

// Previewer fetches the preview of an external page. A nil page means none.
type Previewer interface {
	FetchPagePreview(ctx context.Context, url string) (*types.WebPage, error)
}

// Resolver is stateless apart from its collaborators and safe for concurrent use.
type Resolver struct {
	directory Directory
	previewer Previewer
	log       zerolog.Logger
}

func New(directory Directory, previewer Previewer) *Resolver {
	return &Resolver{
		directory: directory,
		previewer: previewer,
		log:       logger.WithComponent("Resolver"),
	}
}

// Resolve never fails on input: anything it cannot resolve becomes ExternalURL.
// The only error is ctx.Err() when the caller cancels during the lookup, in
// which case no result is produced.
func (r *Resolver) Resolve(ctx context.Context, input string) (Result, error) {
	l := r.log.With().Str("request_id", uuid.NewString()).Logger()

	parsed := deeplink.Classify(input)
	l.Debug().Str("input", input).Str("kind", parsed.Kind()).Msg("Classified link.")

	var (
		result Result
		err    error
	)
	switch p := parsed.(type) {
	case deeplink.External:
		result = ExternalURL{URL: p.URL}
	case deeplink.Article:
		result, err = r.resolveArticle(ctx, l, input)
	case deeplink.Internal:
		result, err = r.resolveIntent(ctx, l, input, p.Intent)
	default:
		result = ExternalURL{URL: input}
	}
	if err != nil {
		l.Debug().Err(err).Msg("Resolution abandoned.")
		return nil, err
	}

	l.Debug().Str("result", result.Kind()).Msg("Resolved link.")
	return result, nil
}

func (r *Resolver) resolveIntent(ctx context.Context, l zerolog.Logger, input string, intent deeplink.Intent) (Result, error) {
	switch in := intent.(type) {
	case deeplink.ProxyReference:
		return Proxy{Host: in.Host, Port: in.Port, Username: in.Username, Password: in.Password}, nil
	case deeplink.StickerPackReference:
		return StickerPack{Name: in.Name}, nil
	case deeplink.JoinReference:
		return Join{Token: in.InviteToken}, nil
	case deeplink.PeerReference:
		peerID, found, err := r.lookupPeer(ctx, l, in.Name)
		if err != nil {
			return nil, err
		}
		if !found {
			return ExternalURL{URL: input}, nil
		}
		return peerResult(peerID, in.Parameter), nil
	default:
		return ExternalURL{URL: input}, nil
	}
}

func peerResult(peerID types.PeerID, parameter deeplink.BotParameter) Result {
	switch param := parameter.(type) {
	case deeplink.BotStart:
		return BotStart{PeerID: peerID, Payload: param.Payload}
	case deeplink.GroupBotStart:
		return GroupBotStart{PeerID: peerID, Payload: param.Payload}
	case deeplink.ChannelMessage:
		return ChannelMessage{
			PeerID:    peerID,
			MessageID: types.MessageID{PeerID: peerID, Namespace: types.MessageNamespaceCloud, ID: param.MessageID},
		}
	default:
		return Peer{PeerID: peerID}
	}
}

// lookupPeer takes the first value of the directory stream. Transport errors
// count as not found.
func (r *Resolver) lookupPeer(ctx context.Context, l zerolog.Logger, name string) (types.PeerID, bool, error) {
	if r.directory == nil {
		return types.PeerID{}, false, nil
	}

	lookupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	select {
	case v, ok := <-r.directory.ResolvePeerByName(lookupCtx, name):
		if !ok {
			l.Debug().Str("name", name).Msg("Directory stream closed without a value.")
			return types.PeerID{}, false, nil
		}
		if v.Err != nil {
			l.Warn().Err(v.Err).Str("name", name).Msg("Directory lookup failed, treating as not found.")
			return types.PeerID{}, false, nil
		}
		return v.PeerID, v.Found, nil
	case <-ctx.Done():
		return types.PeerID{}, false, ctx.Err()
	}
}

func (r *Resolver) resolveArticle(ctx context.Context, l zerolog.Logger, input string) (Result, error) {
	if r.previewer == nil {
		return ExternalURL{URL: input}, nil
	}

	page, err := r.previewer.FetchPagePreview(ctx, input)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		l.Warn().Err(err).Str("url", input).Msg("Page preview failed, treating as external.")
		return ExternalURL{URL: input}, nil
	}
	if !page.HasInstantView() {
		return ExternalURL{URL: input}, nil
	}
	return InstantView{Page: page, Anchor: deeplink.Anchor(input)}, nil
}
