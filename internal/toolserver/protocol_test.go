package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/stretchr/testify/require"
)

type echoInput struct {
	Message string `json:"message" jsonschema:"minLength=1"`
	Times   int    `json:"times,omitempty" default:"1" jsonschema:"minimum=1,maximum=10"`
}

type echoOutput struct {
	Echoed string `json:"echoed"`
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	Register(reg, "echo", "Repeat a message.",
		func(_ context.Context, in echoInput) (echoOutput, error) {
			return echoOutput{Echoed: strings.Repeat(in.Message, in.Times)}, nil
		})
	Register(reg, "always_fails", "Return a typed internal error.",
		func(_ context.Context, _ echoInput) (echoOutput, error) {
			return echoOutput{}, fmt.Errorf("echo backend: %w", apperrors.ErrNotConnected)
		})
	Register(reg, "rejects_input", "Return a typed validation error.",
		func(_ context.Context, _ echoInput) (echoOutput, error) {
			return echoOutput{}, fmt.Errorf("bad value: %w", apperrors.ErrInvalidArgument)
		})
	return reg
}

func runServer(t *testing.T, reg *Registry, input string) []Response {
	t.Helper()
	srv := NewServer(reg, "membria-core", "test", nil)

	var out bytes.Buffer
	err := srv.Start(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	var responses []Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestBurstProducesOrderedResponses(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"

	responses := runServer(t, testRegistry(t), input)
	require.Len(t, responses, 2)
	require.EqualValues(t, 1, responses[0].ID)
	require.EqualValues(t, 2, responses[1].ID)
	require.Nil(t, responses[0].Error)
	require.Nil(t, responses[1].Error)
}

func TestNotificationGetsNoResponse(t *testing.T) {
	responses := runServer(t, testRegistry(t), `{"jsonrpc":"2.0","method":"ping"}`+"\n")
	require.Empty(t, responses)
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	responses := runServer(t, testRegistry(t), `{"jsonrpc":"2.0","id":7,"method":"does/not/exist"}`+"\n")
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	require.Equal(t, CodeMethodNotFound, responses[0].Error.Code)
}

func TestMalformedLineReturnsParseErrorAndContinues(t *testing.T) {
	input := `{not json` + "\n" + `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"

	responses := runServer(t, testRegistry(t), input)
	require.Len(t, responses, 2)
	require.NotNil(t, responses[0].Error)
	require.Equal(t, CodeParseError, responses[0].Error.Code)
	require.Nil(t, responses[0].ID)
	require.EqualValues(t, 1, responses[1].ID)
}

func TestInitializeReportsServerInfo(t *testing.T) {
	responses := runServer(t, testRegistry(t), `{"jsonrpc":"2.0","id":1,"method":"initialize"}`+"\n")
	require.Len(t, responses, 1)

	result, ok := responses[0].Result.(map[string]any)
	require.True(t, ok)
	info, ok := result["serverInfo"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "membria-core", info["name"])
}

func callLine(id int, tool, args string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":%q,"arguments":%s}}`, id, tool, args) + "\n"
}

func TestToolsCallWrapsResultInContentEnvelope(t *testing.T) {
	responses := runServer(t, testRegistry(t), callLine(1, "echo", `{"message":"hi","times":2}`))
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	result, ok := responses[0].Result.(map[string]any)
	require.True(t, ok)
	content, ok := result["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)
	item := content[0].(map[string]any)
	require.Equal(t, "text", item["type"])

	var payload echoOutput
	require.NoError(t, json.Unmarshal([]byte(item["text"].(string)), &payload))
	require.Equal(t, "hihi", payload.Echoed)
}

func TestToolsCallAppliesDefaults(t *testing.T) {
	responses := runServer(t, testRegistry(t), callLine(1, "echo", `{"message":"one"}`))
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	result := responses[0].Result.(map[string]any)
	item := result["content"].([]any)[0].(map[string]any)
	var payload echoOutput
	require.NoError(t, json.Unmarshal([]byte(item["text"].(string)), &payload))
	require.Equal(t, "one", payload.Echoed) // times defaulted to 1
}

func TestToolsCallUnknownToolReturnsMethodNotFound(t *testing.T) {
	responses := runServer(t, testRegistry(t), callLine(1, "nope", `{}`))
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	require.Equal(t, CodeMethodNotFound, responses[0].Error.Code)
}

func TestToolsCallSchemaViolationsReturnInvalidParams(t *testing.T) {
	for _, args := range []string{
		`{}`,                               // missing required message
		`{"message":""}`,                   // below minLength
		`{"message":"hi","times":99}`,      // above maximum
		`{"message":"hi","extra":"field"}`, // additionalProperties: false
	} {
		responses := runServer(t, testRegistry(t), callLine(1, "echo", args))
		require.Len(t, responses, 1, "args=%s", args)
		require.NotNil(t, responses[0].Error, "args=%s", args)
		require.Equal(t, CodeInvalidParams, responses[0].Error.Code, "args=%s", args)
	}
}

func TestToolsCallErrorTaxonomyMapping(t *testing.T) {
	responses := runServer(t, testRegistry(t), callLine(1, "always_fails", `{"message":"hi"}`))
	require.Len(t, responses, 1)
	require.Equal(t, CodeInternalError, responses[0].Error.Code)
	require.Contains(t, responses[0].Error.Message, "not connected")

	responses = runServer(t, testRegistry(t), callLine(2, "rejects_input", `{"message":"hi"}`))
	require.Len(t, responses, 1)
	require.Equal(t, CodeInvalidParams, responses[0].Error.Code)
}

func TestToolsListDefinitionsKeepRegistrationOrder(t *testing.T) {
	reg := testRegistry(t)
	defs := reg.Definitions()
	require.Len(t, defs, 3)
	require.Equal(t, "echo", defs[0].Name)
	require.NotNil(t, defs[0].InputSchema)
}

func TestRegisterRawBypassesSchemaValidation(t *testing.T) {
	reg := testRegistry(t)
	reg.RegisterRaw("ext.remote", "Federated tool.",
		func(_ context.Context, args json.RawMessage) (any, error) {
			return map[string]any{"got": json.RawMessage(args)}, nil
		})

	responses := runServer(t, reg, callLine(1, "ext.remote", `{"anything":["goes",1]}`))
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)
}
