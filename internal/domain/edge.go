package domain

import (
	"strings"
	"time"
)

// EdgeKind es el tipo de relación persistida en el Edge Store.
type EdgeKind string

const (
	EdgeLike         EdgeKind = "like"
	EdgeSubscription EdgeKind = "subscription"
)

// TargetType es el tipo de entidad a la que apunta una arista.
type TargetType string

const (
	TargetVideo   TargetType = "video"
	TargetComment TargetType = "comment"
	TargetTweet   TargetType = "tweet"
	TargetChannel TargetType = "channel"
)

// EntityType devuelve la colección donde vive el objetivo; un Channel es un User.
func (t TargetType) EntityType() EntityType {
	switch t {
	case TargetVideo:
		return EntityVideo
	case TargetComment:
		return EntityComment
	case TargetTweet:
		return EntityTweet
	case TargetChannel:
		return EntityUser
	}
	return ""
}

// EdgeKey identifica una arista. Existe a lo sumo una arista por clave.
type EdgeKey struct {
	SubjectID  string     `json:"subject_id"`
	Kind       EdgeKind   `json:"kind"`
	TargetType TargetType `json:"target_type"`
	TargetID   string     `json:"target_id"`
}

// NewEdgeKey normaliza identificadores y tipos.
func NewEdgeKey(subjectID string, kind EdgeKind, targetType TargetType, targetID string) EdgeKey {
	return EdgeKey{
		SubjectID:  NormalizeID(subjectID),
		Kind:       EdgeKind(strings.ToLower(strings.TrimSpace(string(kind)))),
		TargetType: TargetType(strings.ToLower(strings.TrimSpace(string(targetType)))),
		TargetID:   NormalizeID(targetID),
	}
}

// Validate comprueba la clave sin tocar ningún store.
func (k EdgeKey) Validate() error {
	if k.SubjectID == "" || k.TargetID == "" {
		return ErrInvalidInput.Withf("subject and target ids are required")
	}
	switch k.Kind {
	case EdgeLike:
		switch k.TargetType {
		case TargetVideo, TargetComment, TargetTweet:
		default:
			return ErrInvalidOperation.Withf("cannot like a %q target", k.TargetType)
		}
	case EdgeSubscription:
		if k.TargetType != TargetChannel {
			return ErrInvalidOperation.Withf("subscriptions must target a channel, got %q", k.TargetType)
		}
		if SameIdentity(k.SubjectID, k.TargetID) {
			return ErrSelfSubscription
		}
	default:
		return ErrInvalidOperation.Withf("unknown edge kind %q", k.Kind)
	}
	return nil
}

// String es la representación canónica de la clave.
func (k EdgeKey) String() string {
	return k.SubjectID + "|" + string(k.Kind) + "|" + string(k.TargetType) + "|" + k.TargetID
}

// Edge no tiene campos mutables: se crea o se borra.
type Edge struct {
	EdgeKey
	CreatedAt time.Time `json:"created_at"`
}

// FlipResult es el efecto de un flip atómico.
type FlipResult int

const (
	FlipCreated FlipResult = iota + 1
	FlipDeleted
)

func (r FlipResult) String() string {
	switch r {
	case FlipCreated:
		return "created"
	case FlipDeleted:
		return "deleted"
	}
	return "unknown"
}

// EdgeFilter selecciona aristas para conteos. Los campos vacíos no filtran.
type EdgeFilter struct {
	SubjectID  string
	Kind       EdgeKind
	TargetType TargetType
	TargetID   string
	TargetIDs  []string
}

// NormalizeID recorta espacios y pasa a minúsculas (ids UUID).
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// SameIdentity compara dos ids de forma total; dos ids vacíos nunca son iguales.
func SameIdentity(a, b string) bool {
	na, nb := NormalizeID(a), NormalizeID(b)
	return na != "" && na == nb
}
