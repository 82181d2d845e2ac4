package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	smokeBaseURL string
	smokeTimeout time.Duration
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Exercise a running API end to end",
	Long: `Exercise a running API end to end: health, upload, search and a
two-turn chat on one session.

Examples:
  owlynn smoke
  owlynn smoke --url http://localhost:8001/api/v1`,
	Args: cobra.NoArgs,
	RunE: runSmoke,
}

func init() {
	smokeCmd.Flags().StringVar(&smokeBaseURL, "url", "", "API base URL (default http://localhost:APP_PORT/API_PREFIX)")
	smokeCmd.Flags().DurationVar(&smokeTimeout, "timeout", 3*time.Minute, "per request timeout")
}

type smokeClient struct {
	baseURL string
	http    *http.Client
}

func (c *smokeClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func (c *smokeClient) getJSON(path string) (int, []byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, nil, err
	}
	return c.do(req)
}

func (c *smokeClient) postJSON(path string, body interface{}) (int, []byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *smokeClient) upload(filename string, content []byte) (int, []byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return 0, nil, err
	}
	if _, err := part.Write(content); err != nil {
		return 0, nil, err
	}
	if err := w.WriteField("metadata", `{"source":"smoke"}`); err != nil {
		return 0, nil, err
	}
	if err := w.Close(); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func step(title string, status int, body []byte, err error, want int) ([]byte, error) {
	color.Yellow("\n%s", title)
	if err != nil {
		color.Red("Failed: %v", err)
		return nil, err
	}
	if status != want {
		color.Red("Status: %d", status)
		fmt.Println(string(body))
		return nil, fmt.Errorf("%s: got status %d, want %d", title, status, want)
	}
	color.Green("Status: %d", status)

	prettyPrint(body)
	return body, nil
}

func prettyPrint(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(out.String())
}

func runSmoke(cmd *cobra.Command, args []string) error {
	baseURL := smokeBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + cfg.App.Port + cfg.App.APIPrefix
	}
	c := &smokeClient{baseURL: baseURL, http: &http.Client{Timeout: smokeTimeout}}

	color.Cyan("Smoke testing %s", baseURL)

	status, body, err := c.getJSON("/health")
	if _, err := step("1. Health", status, body, err, http.StatusOK); err != nil {
		return err
	}

	note := []byte("Owlynn smoke test. The meeting with the design team is on Thursday at 10:00.")
	status, body, err = c.upload("smoke-note.txt", note)
	if _, err := step("2. Upload", status, body, err, http.StatusOK); err != nil {
		return err
	}

	status, body, err = c.getJSON("/search?query=design+meeting&limit=3")
	if _, err := step("3. Search", status, body, err, http.StatusOK); err != nil {
		return err
	}

	status, body, err = c.postJSON("/chat", map[string]interface{}{"message": "When is the meeting with the design team?"})
	reply, err := step("4. Chat (new session)", status, body, err, http.StatusOK)
	if err != nil {
		return err
	}
	var first struct {
		SessionID string `json:"session_id"`
	}
	if json.Unmarshal(reply, &first) != nil || first.SessionID == "" {
		return fmt.Errorf("chat response carried no session_id")
	}

	status, body, err = c.postJSON("/chat", map[string]interface{}{"message": "And who is attending it?", "session_id": first.SessionID})
	if _, err := step("5. Chat (follow-up)", status, body, err, http.StatusOK); err != nil {
		return err
	}

	status, body, err = c.getJSON("/conversations/" + first.SessionID)
	if _, err := step("6. Conversation", status, body, err, http.StatusOK); err != nil {
		return err
	}

	color.Green("\nSmoke test passed")
	return nil
}
