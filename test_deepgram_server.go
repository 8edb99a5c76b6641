package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Fake Deepgram live endpoint for local testing. Point the service at
// ws://localhost:9000/v1/listen and it will answer every ~32KB of audio
// with a canned diarized transcript.

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type fakeWord struct {
	Word           string  `json:"word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	Speaker        int     `json:"speaker"`
	PunctuatedWord string  `json:"punctuated_word"`
}

type fakeAlternative struct {
	Transcript string     `json:"transcript"`
	Confidence float64    `json:"confidence"`
	Words      []fakeWord `json:"words"`
}

type fakeResults struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Start       float64 `json:"start"`
	Duration    float64 `json:"duration"`
	Channel     struct {
		Alternatives []fakeAlternative `json:"alternatives"`
	} `json:"channel"`
}

func cannedResults(offset float64, speaker int) fakeResults {
	words := []fakeWord{
		{Word: "testing", Start: offset, End: offset + 0.4, Confidence: 0.98, Speaker: speaker, PunctuatedWord: "Testing"},
		{Word: "one", Start: offset + 0.5, End: offset + 0.7, Confidence: 0.97, Speaker: speaker, PunctuatedWord: "one"},
		{Word: "two", Start: offset + 0.8, End: offset + 1.0, Confidence: 0.96, Speaker: speaker, PunctuatedWord: "two."},
	}

	r := fakeResults{
		Type:        "Results",
		IsFinal:     true,
		SpeechFinal: true,
		Start:       offset,
		Duration:    1.0,
	}
	r.Channel.Alternatives = []fakeAlternative{{
		Transcript: "testing one two",
		Confidence: 0.97,
		Words:      words,
	}}
	return r
}

type closeStream struct {
	Type string `json:"type"`
}

func listenHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("🎤 LIVE CONNECTION OPENED:")
	log.Printf("    Remote: %s", r.RemoteAddr)
	log.Printf("    Auth: %s", r.Header.Get("Authorization"))
	log.Printf("    Model: %s, Language: %s", r.URL.Query().Get("model"), r.URL.Query().Get("language"))
	log.Printf("    Encoding: %s @ %s Hz", r.URL.Query().Get("encoding"), r.URL.Query().Get("sample_rate"))

	var audioBytes, emitted int
	offset := 0.0

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("👋 Connection closed after %d audio bytes, %d results", audioBytes, emitted)
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			audioBytes += len(data)
			// One canned result per ~32KB of audio
			if audioBytes/32768 > emitted {
				result := cannedResults(offset, emitted%2)
				if err := conn.WriteJSON(result); err != nil {
					log.Printf("❌ Failed to send result: %v", err)
					return
				}
				emitted++
				offset += 1.5
				log.Printf("✅ RESULT SENT: '%s' (offset %.1fs)", result.Channel.Alternatives[0].Transcript, result.Start)
			}

		case websocket.TextMessage:
			var msg closeStream
			if json.Unmarshal(data, &msg) == nil && msg.Type == "CloseStream" {
				log.Printf("🏁 CloseStream received, sending final result")
				conn.WriteJSON(cannedResults(offset, emitted%2))
				time.Sleep(100 * time.Millisecond)
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}
}

func main() {
	http.HandleFunc("/v1/listen", listenHandler)

	port := ":9000"
	log.Printf("🚀 Fake Deepgram Server starting on port %s", port)
	log.Printf("📡 Endpoint: ws://localhost%s/v1/listen", port)
	log.Println("💡 Update your config to use: ws://localhost:9000/v1/listen")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
