// Package sdputil holds the pure SDP-text functions the media session and
// adapter layers use: splitting offers into per-media-type partials,
// filtering codecs, rewriting connection addresses, and reassembling
// answers from partials negotiated against different backends.
package sdputil

import (
	"fmt"

	"github.com/pion/sdp/v3"
)

// MediaKind identifies which profile a media section belongs to.
type MediaKind int

const (
	KindUnknown MediaKind = iota
	KindAudio
	KindVideo
	KindContent
)

// rtpmapByPayload mirrors the teacher's codec table (services/rtpmanager/sdp
// builder.go), extended with the video codecs this module negotiates.
var rtpmapByPayload = map[string]string{
	"0":   "PCMU/8000",
	"8":   "PCMA/8000",
	"18":  "G729/8000",
	"96":  "opus/48000/2",
	"97":  "iLBC/8000",
	"98":  "speex/8000",
	"99":  "G723/8000",
	"100": "G726-32/8000",
	"101": "telephone-event/8000",
	"102": "H264/90000",
	"103": "VP8/90000",
}

// GetCodecAttributes returns rtpmap (and, where applicable, fmtp)
// attributes for the given payload-type formats.
func GetCodecAttributes(formats []string) []sdp.Attribute {
	var attrs []sdp.Attribute
	for _, format := range formats {
		if rtpmap, ok := rtpmapByPayload[format]; ok {
			attrs = append(attrs, sdp.Attribute{Key: "rtpmap", Value: format + " " + rtpmap})
		}
	}
	for _, format := range formats {
		if format == "101" {
			attrs = append(attrs, sdp.Attribute{Key: "fmtp", Value: "101 0-15"})
		}
	}
	return attrs
}

// classify determines which profile a media description belongs to.
// Content sections are marked by "a=content:slides" per §4.3; otherwise
// classification follows the m-line's media type.
func classify(md *sdp.MediaDescription) MediaKind {
	for _, a := range md.Attributes {
		if a.Key == "content" && a.Value == "slides" {
			return KindContent
		}
	}
	switch md.MediaName.Media {
	case "audio":
		return KindAudio
	case "video":
		return KindVideo
	default:
		return KindUnknown
	}
}

// SessionHeader returns a copy of sd with its media descriptions stripped,
// i.e. the session-level prelude shared by every partial reassembled from
// it (origin, session name, timing, top-level attributes).
func SessionHeader(sd *sdp.SessionDescription) *sdp.SessionDescription {
	header := *sd
	header.MediaDescriptions = nil
	return &header
}

// GetPartialDescriptions splits sd into one SessionDescription per media
// section, each carrying a copy of the shared session header.
func GetPartialDescriptions(sd *sdp.SessionDescription) []*sdp.SessionDescription {
	header := SessionHeader(sd)
	partials := make([]*sdp.SessionDescription, 0, len(sd.MediaDescriptions))
	for _, md := range sd.MediaDescriptions {
		partial := *header
		partial.MediaDescriptions = []*sdp.MediaDescription{md}
		partials = append(partials, &partial)
	}
	return partials
}

func firstByKind(sd *sdp.SessionDescription, kind MediaKind) (*sdp.SessionDescription, bool) {
	for _, partial := range GetPartialDescriptions(sd) {
		if classify(partial.MediaDescriptions[0]) == kind {
			return partial, true
		}
	}
	return nil, false
}

func GetAudioSDP(sd *sdp.SessionDescription) (*sdp.SessionDescription, bool) {
	return firstByKind(sd, KindAudio)
}

func GetVideoSDP(sd *sdp.SessionDescription) (*sdp.SessionDescription, bool) {
	return firstByKind(sd, KindVideo)
}

func GetContentSDP(sd *sdp.SessionDescription) (*sdp.SessionDescription, bool) {
	return firstByKind(sd, KindContent)
}

// FilterByVideoCodec retains, on each video media section of sd, only the
// payload type matching codec (matched against the rtpmap encoding name)
// and drops the rtpmap/fmtp/rtcp-fb lines belonging to any other payload.
func FilterByVideoCodec(sd *sdp.SessionDescription, codec string) *sdp.SessionDescription {
	out := *sd
	out.MediaDescriptions = make([]*sdp.MediaDescription, len(sd.MediaDescriptions))

	for i, md := range sd.MediaDescriptions {
		if md.MediaName.Media != "video" {
			out.MediaDescriptions[i] = md
			continue
		}
		keep := keptPayloadsForCodec(md, codec)
		filtered := *md
		filtered.MediaName.Formats = keep
		filtered.Attributes = filterAttributesToPayloads(md.Attributes, keep)
		out.MediaDescriptions[i] = &filtered
	}
	return &out
}

func keptPayloadsForCodec(md *sdp.MediaDescription, codec string) []string {
	var keep []string
	for _, format := range md.MediaName.Formats {
		for _, a := range md.Attributes {
			if a.Key != "rtpmap" {
				continue
			}
			if payloadOf(a.Value) == format && codecNameOf(a.Value) == codec {
				keep = append(keep, format)
			}
		}
	}
	return keep
}

// filterAttributesToPayloads drops rtpmap/fmtp/rtcp-fb attributes whose
// leading payload-type token is not in keep, removing the orphans left
// behind by a codec filter (§4.3).
func filterAttributesToPayloads(attrs []sdp.Attribute, keep []string) []sdp.Attribute {
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[k] = true
	}

	out := make([]sdp.Attribute, 0, len(attrs))
	for _, a := range attrs {
		switch a.Key {
		case "rtpmap", "fmtp", "rtcp-fb":
			if keepSet[payloadOf(a.Value)] {
				out = append(out, a)
			}
		default:
			out = append(out, a)
		}
	}
	return out
}

func payloadOf(attrValue string) string {
	for i, c := range attrValue {
		if c == ' ' {
			return attrValue[:i]
		}
	}
	return attrValue
}

func codecNameOf(rtpmapValue string) string {
	rest := ""
	for i, c := range rtpmapValue {
		if c == ' ' {
			rest = rtpmapValue[i+1:]
			break
		}
	}
	for i, c := range rest {
		if c == '/' {
			return rest[:i]
		}
	}
	return rest
}

// NonPureReplaceServerIpv4 substitutes every c=IN IP4 connection address
// (session-level and per-media) with ip. Named to match the source
// behavior: it mutates in place in addition to returning sd, since callers
// in the transposer hold onto the same pointer across both legs.
func NonPureReplaceServerIpv4(sd *sdp.SessionDescription, ip string) *sdp.SessionDescription {
	if sd.ConnectionInformation != nil && sd.ConnectionInformation.Address != nil {
		sd.ConnectionInformation.Address.Address = ip
	}
	for _, md := range sd.MediaDescriptions {
		if md.ConnectionInformation != nil && md.ConnectionInformation.Address != nil {
			md.ConnectionInformation.Address.Address = ip
		}
	}
	return sd
}

// HasAvailableAudioCodec reports whether sd carries at least one non-
// inactive audio m-line with a non-empty format list.
func HasAvailableAudioCodec(sd *sdp.SessionDescription) bool {
	return hasAvailableKind(sd, "audio")
}

// HasAvailableVideoCodec reports whether sd carries at least one non-
// inactive video m-line with a non-empty format list.
func HasAvailableVideoCodec(sd *sdp.SessionDescription) bool {
	return hasAvailableKind(sd, "video")
}

func hasAvailableKind(sd *sdp.SessionDescription, media string) bool {
	for _, md := range sd.MediaDescriptions {
		if md.MediaName.Media != media {
			continue
		}
		if len(md.MediaName.Formats) == 0 {
			continue
		}
		if isInactive(md) {
			continue
		}
		return true
	}
	return false
}

func isInactive(md *sdp.MediaDescription) bool {
	for _, a := range md.Attributes {
		if a.Key == "inactive" {
			return true
		}
	}
	return md.MediaName.Port.Value == 0
}

// UpdateSpecWithChosenCodecs inspects a negotiated descriptor and returns
// the payload-type formats actually present per media kind, so the
// session's media spec can be narrowed to a compatible subset for later
// renegotiations.
func UpdateSpecWithChosenCodecs(sd *sdp.SessionDescription) map[MediaKind][]string {
	chosen := make(map[MediaKind][]string)
	for _, partial := range GetPartialDescriptions(sd) {
		md := partial.MediaDescriptions[0]
		kind := classify(md)
		chosen[kind] = append(chosen[kind], md.MediaName.Formats...)
	}
	return chosen
}

// ReassembleAnswer builds the final answer body from a shared header and
// an ordered list of media descriptions, placing audio first (some
// endpoints require it) and any others in their original offer order, per
// §4.4's answer-reassembly rule.
func ReassembleAnswer(header *sdp.SessionDescription, medias []*sdp.MediaDescription) (*sdp.SessionDescription, error) {
	if header == nil {
		return nil, fmt.Errorf("sdputil: nil session header")
	}
	ordered := make([]*sdp.MediaDescription, 0, len(medias))

	var audio []*sdp.MediaDescription
	var rest []*sdp.MediaDescription
	for _, md := range medias {
		if md.MediaName.Media == "audio" {
			audio = append(audio, md)
		} else {
			rest = append(rest, md)
		}
	}
	ordered = append(ordered, audio...)
	ordered = append(ordered, rest...)

	out := *header
	out.MediaDescriptions = ordered
	return &out, nil
}
