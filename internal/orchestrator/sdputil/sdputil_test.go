package sdputil

import (
	"testing"

	"github.com/pion/sdp/v3"
)

func sampleSession() *sdp.SessionDescription {
	return &sdp.SessionDescription{
		Origin: sdp.Origin{
			Username: "orchestrator", SessionID: 1, SessionVersion: 1,
			NetworkType: "IN", AddressType: "IP4", UnicastAddress: "10.0.0.1",
		},
		SessionName: "conference",
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN", AddressType: "IP4",
			Address: &sdp.Address{Address: "10.0.0.1"},
		},
		MediaDescriptions: []*sdp.MediaDescription{
			{
				MediaName: sdp.MediaName{Media: "audio", Port: sdp.RangedPort{Value: 5000}, Protos: []string{"RTP", "AVP"}, Formats: []string{"0"}},
				Attributes: []sdp.Attribute{
					{Key: "rtpmap", Value: "0 PCMU/8000"},
				},
			},
			{
				MediaName: sdp.MediaName{Media: "video", Port: sdp.RangedPort{Value: 5002}, Protos: []string{"RTP", "AVP"}, Formats: []string{"102", "103"}},
				Attributes: []sdp.Attribute{
					{Key: "rtpmap", Value: "102 H264/90000"},
					{Key: "rtpmap", Value: "103 VP8/90000"},
				},
			},
			{
				MediaName: sdp.MediaName{Media: "video", Port: sdp.RangedPort{Value: 5004}, Protos: []string{"RTP", "AVP"}, Formats: []string{"102"}},
				Attributes: []sdp.Attribute{
					{Key: "content", Value: "slides"},
					{Key: "rtpmap", Value: "102 H264/90000"},
				},
			},
		},
	}
}

func TestGetPartialDescriptionsSplitsPerMediaSection(t *testing.T) {
	partials := GetPartialDescriptions(sampleSession())
	if len(partials) != 3 {
		t.Fatalf("got %d partials, want 3", len(partials))
	}
	for _, p := range partials {
		if len(p.MediaDescriptions) != 1 {
			t.Errorf("partial has %d media descriptions, want 1", len(p.MediaDescriptions))
		}
		if p.SessionName != "conference" {
			t.Errorf("partial lost session header, SessionName = %q", p.SessionName)
		}
	}
}

func TestGetAudioVideoContentSDP(t *testing.T) {
	sd := sampleSession()

	audio, ok := GetAudioSDP(sd)
	if !ok || audio.MediaDescriptions[0].MediaName.Media != "audio" {
		t.Fatalf("GetAudioSDP did not return the audio partial")
	}

	video, ok := GetVideoSDP(sd)
	if !ok || video.MediaDescriptions[0].MediaName.Media != "video" {
		t.Fatalf("GetVideoSDP did not return a video partial")
	}
	// the plain video section (non-content) should come back, not the content one
	for _, a := range video.MediaDescriptions[0].Attributes {
		if a.Key == "content" {
			t.Fatalf("GetVideoSDP returned the content section")
		}
	}

	content, ok := GetContentSDP(sd)
	if !ok {
		t.Fatalf("GetContentSDP found nothing")
	}
	found := false
	for _, a := range content.MediaDescriptions[0].Attributes {
		if a.Key == "content" && a.Value == "slides" {
			found = true
		}
	}
	if !found {
		t.Fatalf("GetContentSDP partial missing a=content:slides")
	}
}

func TestFilterByVideoCodecDropsOrphanLines(t *testing.T) {
	sd := sampleSession()
	filtered := FilterByVideoCodec(sd, "H264")

	videoMD := filtered.MediaDescriptions[1]
	if len(videoMD.MediaName.Formats) != 1 || videoMD.MediaName.Formats[0] != "102" {
		t.Fatalf("Formats = %v, want [102]", videoMD.MediaName.Formats)
	}
	for _, a := range videoMD.Attributes {
		if a.Key == "rtpmap" && a.Value != "102 H264/90000" {
			t.Fatalf("orphan rtpmap line survived filtering: %v", a)
		}
	}
}

func TestNonPureReplaceServerIpv4(t *testing.T) {
	sd := sampleSession()
	NonPureReplaceServerIpv4(sd, "192.168.1.50")

	if sd.ConnectionInformation.Address.Address != "192.168.1.50" {
		t.Fatalf("session-level address not rewritten")
	}
}

func TestHasAvailableCodecs(t *testing.T) {
	sd := sampleSession()
	if !HasAvailableAudioCodec(sd) {
		t.Error("HasAvailableAudioCodec() = false, want true")
	}
	if !HasAvailableVideoCodec(sd) {
		t.Error("HasAvailableVideoCodec() = false, want true")
	}
}

func TestReassembleAnswerPlacesAudioFirst(t *testing.T) {
	sd := sampleSession()
	header := SessionHeader(sd)

	// Feed them in content, video, audio order -- reassembly must still
	// place audio first.
	reordered := []*sdp.MediaDescription{
		sd.MediaDescriptions[2],
		sd.MediaDescriptions[1],
		sd.MediaDescriptions[0],
	}

	answer, err := ReassembleAnswer(header, reordered)
	if err != nil {
		t.Fatalf("ReassembleAnswer error: %v", err)
	}
	if answer.MediaDescriptions[0].MediaName.Media != "audio" {
		t.Fatalf("first media section = %q, want audio", answer.MediaDescriptions[0].MediaName.Media)
	}
}
