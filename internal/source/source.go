// Package source implements the Source tagged union and its deterministic
// content-derived identifier.
package source

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KyroDB/kyroql/internal/confidence"
)

// Kind discriminates the Source variant.
type Kind string

const (
	KindPaper   Kind = "paper"
	KindSensor  Kind = "sensor"
	KindAgent   Kind = "agent"
	KindHuman   Kind = "human"
	KindAPI     Kind = "api"
	KindDerived Kind = "derived"
	KindUnknown Kind = "unknown"
)

// sourceIDNamespace seeds the v5 UUID derivation; stable across processes.
var sourceIDNamespace = uuid.UUID{
	0x5b, 0x1f, 0x67, 0x5e, 0x6d, 0x9f, 0x4b, 0x77,
	0x8e, 0xf4, 0x4f, 0x8b, 0x9b, 0x2a, 0xa1, 0x1c,
}

// Source describes provenance for a belief. Exactly one of the typed field
// groups is meaningful, selected by Kind.
type Source struct {
	Kind Kind

	// Paper
	ArxivID *string
	DOI     *string
	Title   *string
	Authors []string

	// Sensor
	SensorID         string
	SensorType       *string
	CalibrationDate  *time.Time

	// Agent
	AgentID       string
	AgentType     *string
	ModelVersion  *string

	// Human
	UserID string
	Role   *string

	// Api
	ServiceName string
	Endpoint    *string
	Version     *string

	// Derived
	PremiseIDs      []confidence.BeliefID
	DerivationRule  string

	// Unknown
	Description *string
}

func strPtr(s string) *string { return &s }

// NewPaperSource creates a paper source identified by an arXiv id.
func NewPaperSource(arxivID, title string) Source {
	return Source{Kind: KindPaper, ArxivID: strPtr(arxivID), Title: strPtr(title)}
}

// NewPaperDOISource creates a paper source identified by a DOI.
func NewPaperDOISource(doi, title string) Source {
	return Source{Kind: KindPaper, DOI: strPtr(doi), Title: strPtr(title)}
}

// NewSensorSource creates a sensor source.
func NewSensorSource(sensorID string) Source {
	return Source{Kind: KindSensor, SensorID: sensorID}
}

// NewSensorSourceWithType creates a sensor source with a declared type.
func NewSensorSourceWithType(sensorID, sensorType string) Source {
	return Source{Kind: KindSensor, SensorID: sensorID, SensorType: strPtr(sensorType)}
}

// NewAgentSource creates an agent source, optionally pinned to a model version.
func NewAgentSource(agentID string, modelVersion *string) Source {
	return Source{Kind: KindAgent, AgentID: agentID, ModelVersion: modelVersion}
}

// NewAgentSourceWithType creates an agent source with an explicit agent type.
func NewAgentSourceWithType(agentID, agentType string, modelVersion *string) Source {
	return Source{Kind: KindAgent, AgentID: agentID, AgentType: strPtr(agentType), ModelVersion: modelVersion}
}

// NewHumanSource creates a human source.
func NewHumanSource(userID string) Source {
	return Source{Kind: KindHuman, UserID: userID}
}

// NewHumanSourceWithRole creates a human source with a declared role.
func NewHumanSourceWithRole(userID, role string) Source {
	return Source{Kind: KindHuman, UserID: userID, Role: strPtr(role)}
}

// NewAPISource creates an API source.
func NewAPISource(serviceName string) Source {
	return Source{Kind: KindAPI, ServiceName: serviceName}
}

// NewDerivedSource creates a source recording inference from premises.
func NewDerivedSource(premiseIDs []confidence.BeliefID, derivationRule string) Source {
	return Source{Kind: KindDerived, PremiseIDs: premiseIDs, DerivationRule: derivationRule}
}

// NewUnknownSource creates the default unset source.
func NewUnknownSource() Source {
	return Source{Kind: KindUnknown}
}

// NewUnknownSourceWithDescription creates an unknown source with a note.
func NewUnknownSourceWithDescription(description string) Source {
	return Source{Kind: KindUnknown, Description: strPtr(description)}
}

// SourceType returns a human-readable discriminant string.
func (s Source) SourceType() string { return string(s.Kind) }

// IsHuman reports whether this is a human source.
func (s Source) IsHuman() bool { return s.Kind == KindHuman }

// IsAutomated reports whether this is an agent, sensor, or API source.
func (s Source) IsAutomated() bool {
	return s.Kind == KindAgent || s.Kind == KindSensor || s.Kind == KindAPI
}

// IsDerived reports whether this is a derived source.
func (s Source) IsDerived() bool { return s.Kind == KindDerived }

func pushU32(out []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(out, buf[:]...)
}

func pushBytes(out []byte, b []byte) []byte {
	out = pushU32(out, uint32(len(b)))
	return append(out, b...)
}

func pushStr(out []byte, s string) []byte {
	return pushBytes(out, []byte(s))
}

func pushOptStr(out []byte, s *string) []byte {
	if s == nil {
		return append(out, 0)
	}
	out = append(out, 1)
	return pushStr(out, *s)
}

func pushVecStr(out []byte, values []string) []byte {
	out = pushU32(out, uint32(len(values)))
	for _, v := range values {
		out = pushStr(out, v)
	}
	return out
}

func pushOptTime(out []byte, t *time.Time) []byte {
	if t == nil {
		return append(out, 0)
	}
	out = append(out, 1)
	var sec, nsec [8]byte
	binary.LittleEndian.PutUint64(sec[:], uint64(t.Unix()))
	binary.LittleEndian.PutUint64(nsec[:], uint64(int64(t.Nanosecond())))
	out = append(out, sec[:]...)
	out = append(out, nsec[:]...)
	return out
}

// stableIDEncoding builds the versioned, length-prefixed byte encoding that
// source_id hashes. Two sources are structurally equal iff their encodings
// are byte-identical.
func (s Source) stableIDEncoding() []byte {
	out := make([]byte, 0, 256)
	out = pushStr(out, "kyroql:source:v1")
	out = pushStr(out, string(s.Kind))

	switch s.Kind {
	case KindPaper:
		out = pushOptStr(out, s.ArxivID)
		out = pushOptStr(out, s.DOI)
		out = pushOptStr(out, s.Title)
		out = pushVecStr(out, s.Authors)
	case KindSensor:
		out = pushStr(out, s.SensorID)
		out = pushOptStr(out, s.SensorType)
		out = pushOptTime(out, s.CalibrationDate)
	case KindAgent:
		out = pushStr(out, s.AgentID)
		out = pushOptStr(out, s.AgentType)
		out = pushOptStr(out, s.ModelVersion)
	case KindHuman:
		out = pushStr(out, s.UserID)
		out = pushOptStr(out, s.Role)
	case KindAPI:
		out = pushStr(out, s.ServiceName)
		out = pushOptStr(out, s.Endpoint)
		out = pushOptStr(out, s.Version)
	case KindDerived:
		out = pushU32(out, uint32(len(s.PremiseIDs)))
		for _, id := range s.PremiseIDs {
			out = pushStr(out, id.String())
		}
		out = pushStr(out, s.DerivationRule)
	case KindUnknown:
		out = pushOptStr(out, s.Description)
	}
	return out
}

// SourceID computes the deterministic content-derived identifier: a v5 UUID
// over the stable encoding. Equal sources yield equal ids; unequal sources
// yield unequal ids (spec §3, §8 property 3).
func (s Source) SourceID() confidence.SourceID {
	encoding := s.stableIDEncoding()
	return confidence.SourceID(uuid.NewSHA1(sourceIDNamespace, encoding))
}

// String renders a short human-readable form, mirroring the original's
// Display implementation.
func (s Source) String() string {
	switch s.Kind {
	case KindPaper:
		switch {
		case s.ArxivID != nil:
			return fmt.Sprintf("paper:arXiv:%s", *s.ArxivID)
		case s.DOI != nil:
			return fmt.Sprintf("paper:doi:%s", *s.DOI)
		case s.Title != nil:
			return fmt.Sprintf("paper:%q", *s.Title)
		default:
			return "paper:unknown"
		}
	case KindSensor:
		return fmt.Sprintf("sensor:%s", s.SensorID)
	case KindAgent:
		return fmt.Sprintf("agent:%s", s.AgentID)
	case KindHuman:
		return fmt.Sprintf("human:%s", s.UserID)
	case KindAPI:
		return fmt.Sprintf("api:%s", s.ServiceName)
	case KindDerived:
		return fmt.Sprintf("derived:%s", s.DerivationRule)
	case KindUnknown:
		if s.Description != nil {
			return fmt.Sprintf("unknown:%s", *s.Description)
		}
		return "unknown"
	default:
		return "unknown"
	}
}
