package rt

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrKilled is returned when the fault handler killed a request.
	ErrKilled = errors.New("request killed by fault handler")

	// ErrUnaligned is returned for data that is not a whole number of blocks.
	ErrUnaligned = errors.New("data is not a multiple of the block size")
)

// State is the resumable position of an encryption request.
type State struct {
	IV        [aes.BlockSize]byte // CBC chaining value
	Offset    int                 // Bytes already encrypted
	Remaining int                 // Bytes left
}

// Done reports whether the request has no bytes left.
func (s State) Done() bool { return s.Offset > 0 && s.Remaining == 0 }

// Request asks the server to encrypt Data in place for Client.
type Request struct {
	Client *Thread
	Data   []byte

	// Resume continues a request returned incomplete. Zero starts over.
	Resume State
}

// Response reports how far a request got.
type Response struct {
	State    State
	Faults   int    // Timeout faults raised
	Recovery uint64 // Last recovery cost, from handler start to resume, ns
	Policy   Policy // Policy of the last recovery
}

// ServerConfig configures an AES server.
type ServerConfig struct {
	Key []byte
	IV  []byte

	// BlockCost is the budget charged per encrypted block.
	BlockCost time.Duration

	// Faults receives timeout faults. Nil returns ErrBudgetExhausted to
	// the client with the partial state instead.
	Faults *Endpoint

	// Emergency is the server's own context used by PolicyEmergency.
	Emergency *SchedContext
}

// DefaultServerConfig returns a server with a fixed key and 1µs per block.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Key:       []byte("schedbench aes k"),
		IV:        make([]byte, aes.BlockSize),
		BlockCost: time.Microsecond,
	}
}

// Server is a passive AES-CBC encryption server. It has no budget of its
// own and runs on the scheduling context of the client it serves.
type Server struct {
	mu         sync.Mutex
	cfg        ServerConfig
	block      cipher.Block
	iv         [aes.BlockSize]byte
	thread     *Thread
	state      State
	checkpoint State
}

// NewServer creates a server.
func NewServer(cfg ServerConfig) (*Server, error) {
	block, err := aes.NewCipher(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("aes server: %w", err)
	}
	if len(cfg.IV) != aes.BlockSize {
		return nil, fmt.Errorf("aes server: iv is %d bytes, want %d", len(cfg.IV), aes.BlockSize)
	}

	s := &Server{
		cfg:    cfg,
		block:  block,
		thread: NewThread("aes-server"),
	}
	copy(s.iv[:], cfg.IV)
	return s, nil
}

// Call runs one request on the client's context. It returns with an
// incomplete state after a rollback, or with ErrBudgetExhausted when no
// fault endpoint is configured.
func (s *Server) Call(ctx context.Context, req Request) (Response, error) {
	if len(req.Data)%aes.BlockSize != 0 {
		return Response{}, fmt.Errorf("%d bytes: %w", len(req.Data), ErrUnaligned)
	}
	sc := req.Client.SchedContext()
	if sc == nil {
		return Response{}, fmt.Errorf("%s: %w", req.Client.Name, ErrPassive)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.thread.Bind(sc); err != nil {
		return Response{}, err
	}
	defer s.thread.Unbind()

	s.checkpoint = State{IV: s.iv, Remaining: len(req.Data)}
	s.state = req.Resume
	if s.state.Offset == 0 && s.state.Remaining == 0 {
		s.state = s.checkpoint
	}

	var resp Response
	for s.state.Remaining > 0 {
		if err := ctx.Err(); err != nil {
			resp.State = s.state
			return resp, err
		}

		s.encryptBlock(req.Data)
		err := s.thread.Charge(s.cfg.BlockCost)
		if err == nil || s.state.Remaining == 0 {
			continue
		}
		if !errors.Is(err, ErrBudgetExhausted) {
			return resp, err
		}

		resp.Faults++
		if s.cfg.Faults == nil {
			resp.State = s.state
			return resp, err
		}

		cur := s.thread.SchedContext()
		reply, err := s.cfg.Faults.Send(ctx, Fault{
			Badge:        cur.Badge,
			Thread:       req.Client.Name,
			Stamp:        Now(),
			Consumed:     cur.Budget(),
			SchedContext: cur,
		})
		if err != nil {
			resp.State = s.state
			return resp, err
		}

		done, err := s.recover(ctx, reply.Policy, cur, &resp)
		resp.Recovery = Now() - reply.Start
		resp.Policy = reply.Policy
		if err != nil || done {
			return resp, err
		}
	}

	resp.State = s.state
	return resp, nil
}

// recover applies a policy on the server side. It reports whether the
// request ends here.
func (s *Server) recover(ctx context.Context, p Policy, cur *SchedContext, resp *Response) (bool, error) {
	switch p {
	case PolicyRollback:
		resp.State = s.state
		s.state = s.checkpoint
		return true, nil

	case PolicyKill:
		resp.State = State{}
		s.state = s.checkpoint
		return true, ErrKilled

	case PolicyExtend:
		// The handler already extended the client's budget.
		return false, nil

	case PolicyEmergency:
		em := s.cfg.Emergency
		if em == nil {
			return true, fmt.Errorf("emergency recovery without a context: %w", ErrPassive)
		}
		if cur == em {
			// The emergency budget ran out too.
			return false, em.WaitRefill(ctx)
		}
		s.thread.Unbind()
		if err := s.thread.Bind(em); err != nil {
			return true, err
		}
		return false, nil
	}
	return true, fmt.Errorf("unknown recovery policy %q", p)
}

// encryptBlock encrypts the next block of data in CBC mode.
func (s *Server) encryptBlock(data []byte) {
	off := s.state.Offset
	blk := data[off : off+aes.BlockSize]
	for i := range blk {
		blk[i] ^= s.state.IV[i]
	}
	s.block.Encrypt(blk, blk)
	copy(s.state.IV[:], blk)

	s.state.Offset += aes.BlockSize
	s.state.Remaining -= aes.BlockSize
}

// Encrypt runs data through the server until it is fully encrypted. Budget
// exhaustion waits for the next period and resubmits; a rollback resubmits
// from the returned state.
func Encrypt(ctx context.Context, s *Server, client *Thread, data []byte) (Response, error) {
	var total Response
	if len(data) == 0 {
		return total, nil
	}
	req := Request{Client: client, Data: data}
	for {
		resp, err := s.Call(ctx, req)
		total.Faults += resp.Faults
		total.State = resp.State
		if resp.Policy != "" {
			total.Policy, total.Recovery = resp.Policy, resp.Recovery
		}

		switch {
		case errors.Is(err, ErrBudgetExhausted):
			if err := client.SchedContext().WaitRefill(ctx); err != nil {
				return total, err
			}
		case err != nil:
			return total, err
		case resp.State.Done():
			return total, nil
		}
		req.Resume = resp.State
	}
}
