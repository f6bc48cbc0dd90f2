package event

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Type names a kind of fact on the log.
type Type string

const (
	TypeProfileCreate        Type = "PROFILE_CREATE"
	TypeTrustTokenGiven      Type = "TRUST_TOKEN_GIVEN"
	TypeBadgeIssued          Type = "BADGE_ISSUED"
	TypeReputationCalculated Type = "REPUTATION_CALCULATED"
	TypePollCreated          Type = "COMMUNITY_POLL_CREATED"
	TypeVoteCast             Type = "POLL_VOTE_CAST"
)

// Standard is the HCS standard tag carried by each event kind.
type Standard string

const (
	StandardProfile    Standard = "HCS-11"
	StandardTrustToken Standard = "HCS-20"
	StandardBadge      Standard = "HCS-5"
	StandardReputation Standard = "HCS-2"
	StandardPoll       Standard = "HCS-8"
	StandardVote       Standard = "HCS-9"
)

// Topic names an ordered stream on the external log.
type Topic string

const (
	TopicProfiles    Topic = "profiles"
	TopicTrustTokens Topic = "trust_tokens"
	TopicBadges      Topic = "badges"
	TopicReputation  Topic = "reputation"
	TopicPolls       Topic = "polls"
)

// Topics lists every topic the engine consumes, in a stable order.
func Topics() []Topic {
	return []Topic{TopicProfiles, TopicTrustTokens, TopicBadges, TopicReputation, TopicPolls}
}

// Definition describes how one event type is tagged, routed, and decoded.
type Definition struct {
	Type     Type
	Standard Standard
	Topic    Topic
	decode   func(data []byte) (Payload, error)
}

var definitions = map[Type]Definition{
	TypeProfileCreate: {
		Type: TypeProfileCreate, Standard: StandardProfile, Topic: TopicProfiles,
		decode: decodeAs[ProfileCreated],
	},
	TypeTrustTokenGiven: {
		Type: TypeTrustTokenGiven, Standard: StandardTrustToken, Topic: TopicTrustTokens,
		decode: decodeAs[TrustTokenGiven],
	},
	TypeBadgeIssued: {
		Type: TypeBadgeIssued, Standard: StandardBadge, Topic: TopicBadges,
		decode: decodeAs[BadgeIssued],
	},
	TypeReputationCalculated: {
		Type: TypeReputationCalculated, Standard: StandardReputation, Topic: TopicReputation,
		decode: decodeAs[ReputationCalculated],
	},
	TypePollCreated: {
		Type: TypePollCreated, Standard: StandardPoll, Topic: TopicPolls,
		decode: decodeAs[PollCreated],
	},
	TypeVoteCast: {
		Type: TypeVoteCast, Standard: StandardVote, Topic: TopicPolls,
		decode: decodeAs[VoteCast],
	},
}

// Lookup returns the definition registered for t.
func Lookup(t Type) (Definition, bool) {
	def, ok := definitions[t]
	return def, ok
}

// Known reports whether t is one of the six defined event types.
func Known(t Type) bool {
	_, ok := definitions[t]
	return ok
}

// TopicFor returns the topic events of type t are appended to.
func TopicFor(t Type) (Topic, bool) {
	def, ok := definitions[t]
	return def.Topic, ok
}

// Types lists every defined event type in lexical order.
func Types() []Type {
	types := make([]Type, 0, len(definitions))
	for t := range definitions {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// decodeAs strictly decodes data into a payload of type T.
func decodeAs[T Payload](data []byte) (Payload, error) {
	var value T
	if err := decodeStrict(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func decodeStrict(data []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
