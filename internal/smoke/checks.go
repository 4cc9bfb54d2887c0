package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/userapi/internal/domain/model"
)

// check is one property probed against the live service.
type check struct {
	name string
	run  func(ctx context.Context, c *client) error
}

// documentedPaths are the operations the API description must list, and
// nothing else.
var documentedPaths = []string{"/upload", "/user", "/user/{id}"}

// idempotentPaths must answer byte-identical bodies to repeated GETs.
var idempotentPaths = []string{"/", "/user/7", "/api-docs/openapi.json", "/swagger-ui"}

// perRequestChecks run once per iteration with fresh inputs.
func perRequestChecks() []check {
	return []check{
		{name: "get_user", run: checkGetUser},
		{name: "get_user_invalid_id", run: checkGetUserInvalid},
		{name: "create_user", run: checkCreateUser},
		{name: "create_user_missing_email", run: checkCreateUserMissingEmail},
		{name: "upload_file", run: checkUpload},
		{name: "upload_file_missing_file", run: checkUploadMissingFile},
	}
}

// onceChecks run a single time per smoke run.
func onceChecks() []check {
	return []check{
		{name: "description_paths", run: checkDescriptionPaths},
		{name: "idempotent_reads", run: checkIdempotentReads},
	}
}

func expectStatus(resp *response, want int) error {
	if resp.status != want {
		return fmt.Errorf("status %d, want %d: %s", resp.status, want, truncate(resp.body))
	}
	return nil
}

func expectClientError(resp *response) error {
	if resp.status < http.StatusBadRequest || resp.status >= http.StatusInternalServerError {
		return fmt.Errorf("status %d, want 4xx: %s", resp.status, truncate(resp.body))
	}
	return nil
}

func checkGetUser(ctx context.Context, c *client) error {
	id := int32(rand.Uint32())
	resp, err := c.get(ctx, "/user/"+strconv.FormatInt(int64(id), 10))
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	var u model.User
	if err := json.Unmarshal(resp.body, &u); err != nil {
		return fmt.Errorf("decode user: %w", err)
	}
	if u != model.NewUser(id) {
		return fmt.Errorf("got %+v for id %d", u, id)
	}
	return nil
}

func checkGetUserInvalid(ctx context.Context, c *client) error {
	ids := []string{"abc", "1.5", strconv.FormatInt(math.MaxInt32+1, 10)}
	resp, err := c.get(ctx, "/user/"+ids[rand.Intn(len(ids))])
	if err != nil {
		return err
	}
	return expectClientError(resp)
}

func checkCreateUser(ctx context.Context, c *client) error {
	n := rand.Uint32()
	resp, err := c.postJSON(ctx, "/user", model.CreateUserRequest{
		Username: fmt.Sprintf("smoke_%d", n),
		Email:    fmt.Sprintf("smoke_%d@example.com", n),
	})
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusCreated); err != nil {
		return err
	}
	if string(resp.body) != "User created" {
		return fmt.Errorf("body %q, want %q", resp.body, "User created")
	}
	return nil
}

func checkCreateUserMissingEmail(ctx context.Context, c *client) error {
	resp, err := c.postJSON(ctx, "/user", map[string]string{"username": "smoke"})
	if err != nil {
		return err
	}
	return expectClientError(resp)
}

func checkUpload(ctx context.Context, c *client) error {
	name := fmt.Sprintf("smoke_%d.txt", rand.Uint32())
	description := fmt.Sprintf("smoke upload %d", rand.Uint32())
	resp, err := c.postMultipart(ctx, "/upload",
		map[string]string{"description": description},
		formFile{field: "file", name: name, content: []byte("smoke content")},
	)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	if !bytes.Contains(resp.body, []byte(name)) || !bytes.Contains(resp.body, []byte(description)) {
		return fmt.Errorf("body %q does not mention %q and %q", resp.body, name, description)
	}
	return nil
}

func checkUploadMissingFile(ctx context.Context, c *client) error {
	resp, err := c.postMultipart(ctx, "/upload", map[string]string{"description": "no file"})
	if err != nil {
		return err
	}
	return expectClientError(resp)
}

func checkDescriptionPaths(ctx context.Context, c *client) error {
	resp, err := c.get(ctx, "/api-docs/openapi.json")
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(resp.body, &doc); err != nil {
		return fmt.Errorf("decode description: %w", err)
	}
	paths := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	if !slices.Equal(paths, documentedPaths) {
		return fmt.Errorf("paths %v, want %v", paths, documentedPaths)
	}
	return nil
}

func checkIdempotentReads(ctx context.Context, c *client) error {
	for _, path := range idempotentPaths {
		first, err := c.get(ctx, path)
		if err != nil {
			return err
		}
		second, err := c.get(ctx, path)
		if err != nil {
			return err
		}
		if first.status != http.StatusOK || second.status != http.StatusOK {
			return fmt.Errorf("%s: status %d then %d", path, first.status, second.status)
		}
		if !bytes.Equal(first.body, second.body) {
			return fmt.Errorf("%s: bodies differ between reads", path)
		}
	}
	return nil
}

const maxBodyExcerpt = 120

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxBodyExcerpt {
		return s[:maxBodyExcerpt] + "..."
	}
	return s
}
