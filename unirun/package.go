package unirun

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Protocol version carried in every frame.
const ProtocolVersion uint8 = 1

// PayloadType is the top-level discriminator of a Package
type PayloadType uint8

const (
	PayloadCommand PayloadType = 0
	PayloadHit     PayloadType = 1
	PayloadResult  PayloadType = 2
)

// String returns the payload type name
func (pt PayloadType) String() string {
	switch pt {
	case PayloadCommand:
		return "COMMAND"
	case PayloadHit:
		return "HIT"
	case PayloadResult:
		return "RESULT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", pt)
	}
}

// CommandKind identifies one of the four host commands
type CommandKind uint8

const (
	CommandQuit     CommandKind = 0
	CommandAbort    CommandKind = 1
	CommandGetData  CommandKind = 2
	CommandActivate CommandKind = 3
)

// String returns the command name
func (ck CommandKind) String() string {
	switch ck {
	case CommandQuit:
		return "QUIT"
	case CommandAbort:
		return "ABORT"
	case CommandGetData:
		return "GET_DATA"
	case CommandActivate:
		return "ACTIVATE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", ck)
	}
}

// PackageId correlates a reply with the request (or send attempt) it answers.
// It is minted fresh for every Package and carries no ordering.
type PackageId [16]byte

// NewPackageId mints a random UUID-based PackageId
func NewPackageId() PackageId {
	return PackageId(uuid.New())
}

// PackageIdFromBytes builds a PackageId from its 16-byte wire form
func PackageIdFromBytes(b []byte) (PackageId, error) {
	if len(b) != 16 {
		return PackageId{}, errors.New("package id must be exactly 16 bytes")
	}
	var id PackageId
	copy(id[:], b)
	return id, nil
}

// IsZero reports whether the id was never minted
func (id PackageId) IsZero() bool {
	return id == PackageId{}
}

// String returns the UUID string form
func (id PackageId) String() string {
	return uuid.UUID(id).String()
}

// Command is a host instruction. Query is set for GetData, HitID for Activate.
type Command struct {
	Kind  CommandKind
	Query string
	HitID string
}

// Hit is one streamed search result
type Hit struct {
	ID          string
	Title       string
	Description string
	Icon        string
}

func (h Hit) String() string {
	return fmt.Sprintf("%s (%s)", h.Title, h.ID)
}

// Result answers a prior Package. A nil Err is success.
type Result struct {
	AnsweredID PackageId
	Err        *string
}

// Ok reports whether the outcome is success
func (r Result) Ok() bool {
	return r.Err == nil
}

// Error returns the failure message, or "" on success
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return *r.Err
}

// Payload is a tagged union. Exactly the field selected by Type is set.
type Payload struct {
	Type    PayloadType
	Command *Command
	Hit     *Hit
	Result  *Result
}

// Validate checks that exactly one variant matching Type is populated
func (p Payload) Validate() error {
	set := 0
	if p.Command != nil {
		set++
	}
	if p.Hit != nil {
		set++
	}
	if p.Result != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("payload must carry exactly one variant, got %d", set)
	}
	switch p.Type {
	case PayloadCommand:
		if p.Command == nil {
			return errors.New("COMMAND payload missing command")
		}
	case PayloadHit:
		if p.Hit == nil {
			return errors.New("HIT payload missing hit")
		}
	case PayloadResult:
		if p.Result == nil {
			return errors.New("RESULT payload missing result")
		}
	default:
		return fmt.Errorf("invalid payload type %d", p.Type)
	}
	return nil
}

// Package is the unit of transmission
type Package struct {
	ID      PackageId
	Payload Payload
}

func newPackage(payload Payload) *Package {
	return &Package{
		ID:      NewPackageId(),
		Payload: payload,
	}
}

// NewCommandPackage wraps a command in a freshly identified Package
func NewCommandPackage(cmd Command) *Package {
	return newPackage(Payload{Type: PayloadCommand, Command: &cmd})
}

// NewQuit creates a QUIT command package
func NewQuit() *Package {
	return NewCommandPackage(Command{Kind: CommandQuit})
}

// NewAbort creates an ABORT command package. The provider also sends one as
// the end-of-stream marker after delivering hits.
func NewAbort() *Package {
	return NewCommandPackage(Command{Kind: CommandAbort})
}

// NewGetData creates a GET_DATA command package
func NewGetData(query string) *Package {
	return NewCommandPackage(Command{Kind: CommandGetData, Query: query})
}

// NewActivate creates an ACTIVATE command package
func NewActivate(hitID string) *Package {
	return NewCommandPackage(Command{Kind: CommandActivate, HitID: hitID})
}

// NewHitPackage wraps a hit. Each call mints a new id, so a resent hit is a
// distinct attempt.
func NewHitPackage(hit Hit) *Package {
	return newPackage(Payload{Type: PayloadHit, Hit: &hit})
}

// NewOk creates a successful RESULT answering id
func NewOk(answered PackageId) *Package {
	return newPackage(Payload{Type: PayloadResult, Result: &Result{AnsweredID: answered}})
}

// NewErr creates a failed RESULT answering id
func NewErr(answered PackageId, message string) *Package {
	return newPackage(Payload{Type: PayloadResult, Result: &Result{AnsweredID: answered, Err: &message}})
}

// IsCommand reports whether the package carries a command of the given kind
func (p *Package) IsCommand(kind CommandKind) bool {
	return p.Payload.Type == PayloadCommand && p.Payload.Command != nil && p.Payload.Command.Kind == kind
}

func (p *Package) String() string {
	switch p.Payload.Type {
	case PayloadCommand:
		if p.Payload.Command != nil {
			return fmt.Sprintf("Package{id=%s COMMAND %s query=%q hit=%q}",
				p.ID, p.Payload.Command.Kind, p.Payload.Command.Query, p.Payload.Command.HitID)
		}
	case PayloadHit:
		if p.Payload.Hit != nil {
			return fmt.Sprintf("Package{id=%s HIT %s}", p.ID, p.Payload.Hit)
		}
	case PayloadResult:
		if r := p.Payload.Result; r != nil {
			if r.Ok() {
				return fmt.Sprintf("Package{id=%s RESULT answers=%s ok}", p.ID, r.AnsweredID)
			}
			return fmt.Sprintf("Package{id=%s RESULT answers=%s err=%q}", p.ID, r.AnsweredID, *r.Err)
		}
	}
	return fmt.Sprintf("Package{id=%s %s}", p.ID, p.Payload.Type)
}
