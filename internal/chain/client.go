package chain

import (
	"context"

	gsrpc "github.com/centrifuge/go-substrate-rpc-api/v4"
	"github.com/centrifuge/go-substrate-rpc-api/v4/types"
)

// Conn is a scoped connection to one substrate network. It caches the chain
// metadata at dial time, so every call built on this connection is encoded
// against a single consistent call schema. Callers own the connection and
// must Close it on every exit path.
type Conn struct {
	endpoint string
	api      *gsrpc.SubstrateAPI
	meta     *types.Metadata
}

// Dial opens a websocket connection to the given RPC endpoint and fetches
// the chain metadata. The context bounds the whole handshake; a connection
// that completes after cancellation is closed rather than leaked.
func Dial(ctx context.Context, endpoint string) (*Conn, error) {
	type result struct {
		conn *Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		api, err := gsrpc.NewSubstrateAPI(endpoint)
		if err != nil {
			ch <- result{err: err}
			return
		}
		meta, err := api.RPC.State.GetMetadataLatest()
		if err != nil {
			closeClient(api)
			ch <- result{err: err}
			return
		}
		ch <- result{conn: &Conn{endpoint: endpoint, api: api, meta: meta}}
	}()
	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-ch:
		return r.conn, r.err
	}
}

// Endpoint returns the RPC endpoint this connection was dialed against.
func (c *Conn) Endpoint() string {
	if c == nil {
		return ""
	}
	return c.endpoint
}

// ProposalCount reads the council's pending-proposal counter. The value is
// the index the next submitted proposal will occupy, and is only accurate
// until someone else submits one.
func (c *Conn) ProposalCount(ctx context.Context) (uint32, error) {
	return c.counter(ctx, "TreasuryCouncilCollective", "ProposalCount")
}

// SpendCount reads the treasury's spend counter, the index of the next
// approved spend.
func (c *Conn) SpendCount(ctx context.Context) (uint32, error) {
	return c.counter(ctx, "Treasury", "SpendCount")
}

func (c *Conn) counter(ctx context.Context, pallet, item string) (uint32, error) {
	return await(ctx, func() (uint32, error) {
		key, err := types.CreateStorageKey(c.meta, pallet, item)
		if err != nil {
			return 0, err
		}
		var count types.U32
		ok, err := c.api.RPC.State.GetStorageLatest(key, &count)
		if err != nil {
			return 0, err
		}
		if !ok {
			// Unset storage means no proposal/spend has ever been made.
			return 0, nil
		}
		return uint32(count), nil
	})
}

// Close releases the underlying websocket. Safe on nil.
func (c *Conn) Close() {
	if c == nil || c.api == nil {
		return
	}
	closeClient(c.api)
}

func closeClient(api *gsrpc.SubstrateAPI) {
	type closer interface{ Close() }
	if cc, ok := api.Client.(closer); ok {
		cc.Close()
	}
}

// await runs fn in a goroutine so a blocking SDK call can be abandoned when
// the context ends. The goroutine finishes on its own schedule; results that
// arrive after cancellation are dropped.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v: v, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}
