package unirun

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR map keys of a package frame
const (
	keyVersion     = 0 // version (u8, always ProtocolVersion)
	keyPayloadType = 1 // payload_type (u8)
	keyId          = 2 // id (bytes[16])
	keyCommand     = 3 // command kind (u8, COMMAND only)
	keyQuery       = 4 // query (tstr, GET_DATA only)
	keyHitId       = 5 // hit_id (tstr, ACTIVATE only)
	keyHit         = 6 // hit (map, HIT only)
	keyAnsweredId  = 7 // answered_id (bytes[16], RESULT only)
	keyError       = 8 // error (tstr, RESULT only, absent on success)
)

// CBOR map keys of the nested hit map
const (
	hitKeyId          = 0
	hitKeyTitle       = 1
	hitKeyDescription = 2
	hitKeyIcon        = 3
)

// EncodePackage encodes a Package to CBOR bytes using integer keys
func EncodePackage(pkg *Package) ([]byte, error) {
	if err := pkg.Payload.Validate(); err != nil {
		return nil, err
	}

	m := make(map[int]interface{})
	m[keyVersion] = ProtocolVersion
	m[keyPayloadType] = uint8(pkg.Payload.Type)
	m[keyId] = pkg.ID[:]

	switch pkg.Payload.Type {
	case PayloadCommand:
		cmd := pkg.Payload.Command
		m[keyCommand] = uint8(cmd.Kind)
		switch cmd.Kind {
		case CommandGetData:
			m[keyQuery] = cmd.Query
		case CommandActivate:
			m[keyHitId] = cmd.HitID
		}

	case PayloadHit:
		hit := pkg.Payload.Hit
		hm := map[int]string{hitKeyId: hit.ID}
		if hit.Title != "" {
			hm[hitKeyTitle] = hit.Title
		}
		if hit.Description != "" {
			hm[hitKeyDescription] = hit.Description
		}
		if hit.Icon != "" {
			hm[hitKeyIcon] = hit.Icon
		}
		m[keyHit] = hm

	case PayloadResult:
		res := pkg.Payload.Result
		m[keyAnsweredId] = res.AnsweredID[:]
		if res.Err != nil {
			m[keyError] = *res.Err
		}
	}

	return cbor.Marshal(m)
}

// DecodePackage decodes CBOR bytes to a Package using integer keys
func DecodePackage(data []byte) (*Package, error) {
	var m map[int]interface{}
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	// 0: version (required)
	verVal, ok := m[keyVersion]
	if !ok {
		return nil, errors.New("missing version (key 0)")
	}
	ver, ok := verVal.(uint64)
	if !ok {
		return nil, errors.New("version must be uint")
	}
	if ver != uint64(ProtocolVersion) {
		return nil, fmt.Errorf("invalid version %d, expected %d", ver, ProtocolVersion)
	}

	// 1: payload_type (required)
	ptVal, ok := m[keyPayloadType]
	if !ok {
		return nil, errors.New("missing payload_type (key 1)")
	}
	pt, ok := ptVal.(uint64)
	if !ok {
		return nil, errors.New("payload_type must be uint")
	}
	if pt > uint64(PayloadResult) {
		return nil, fmt.Errorf("invalid payload_type %d", pt)
	}

	// 2: id (required)
	id, err := decodeId(m, keyId, "id")
	if err != nil {
		return nil, err
	}

	pkg := &Package{ID: id, Payload: Payload{Type: PayloadType(pt)}}

	switch pkg.Payload.Type {
	case PayloadCommand:
		cmd, err := decodeCommand(m)
		if err != nil {
			return nil, err
		}
		pkg.Payload.Command = cmd

	case PayloadHit:
		hit, err := decodeHit(m)
		if err != nil {
			return nil, err
		}
		pkg.Payload.Hit = hit

	case PayloadResult:
		answered, err := decodeId(m, keyAnsweredId, "answered_id")
		if err != nil {
			return nil, err
		}
		res := &Result{AnsweredID: answered}
		if errVal, ok := m[keyError]; ok {
			msg, ok := errVal.(string)
			if !ok {
				return nil, errors.New("error must be text")
			}
			res.Err = &msg
		}
		pkg.Payload.Result = res
	}

	return pkg, nil
}

func decodeId(m map[int]interface{}, key int, name string) (PackageId, error) {
	val, ok := m[key]
	if !ok {
		return PackageId{}, fmt.Errorf("missing %s (key %d)", name, key)
	}
	b, ok := val.([]byte)
	if !ok {
		return PackageId{}, fmt.Errorf("%s must be bytes[16]", name)
	}
	id, err := PackageIdFromBytes(b)
	if err != nil {
		return PackageId{}, fmt.Errorf("%s: %w", name, err)
	}
	return id, nil
}

func decodeCommand(m map[int]interface{}) (*Command, error) {
	kindVal, ok := m[keyCommand]
	if !ok {
		return nil, errors.New("COMMAND payload missing command kind (key 3)")
	}
	kind, ok := kindVal.(uint64)
	if !ok {
		return nil, errors.New("command kind must be uint")
	}

	if kind > uint64(CommandActivate) {
		return nil, fmt.Errorf("invalid command kind %d", kind)
	}

	cmd := &Command{Kind: CommandKind(kind)}
	switch cmd.Kind {
	case CommandQuit, CommandAbort:
	case CommandGetData:
		query, ok := m[keyQuery].(string)
		if !ok {
			return nil, errors.New("GET_DATA requires query text")
		}
		cmd.Query = query
	case CommandActivate:
		hitID, ok := m[keyHitId].(string)
		if !ok {
			return nil, errors.New("ACTIVATE requires hit_id text")
		}
		cmd.HitID = hitID
	default:
		return nil, fmt.Errorf("invalid command kind %d", kind)
	}
	return cmd, nil
}

func decodeHit(m map[int]interface{}) (*Hit, error) {
	hitVal, ok := m[keyHit]
	if !ok {
		return nil, errors.New("HIT payload missing hit (key 6)")
	}
	raw, ok := hitVal.(map[interface{}]interface{})
	if !ok {
		return nil, errors.New("hit must be a map")
	}

	fields := make(map[uint64]string, len(raw))
	for k, v := range raw {
		key, ok := k.(uint64)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			fields[key] = s
		}
	}

	id, ok := fields[hitKeyId]
	if !ok {
		return nil, errors.New("hit missing id")
	}
	return &Hit{
		ID:          id,
		Title:       fields[hitKeyTitle],
		Description: fields[hitKeyDescription],
		Icon:        fields[hitKeyIcon],
	}, nil
}
