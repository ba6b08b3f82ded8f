package george

import (
	"context"
	"encoding/json"

	"tvbridge/internal/bridge"
)

// MethodName is the procedure the pipeline server invokes to run a script.
const MethodName = "execute_george"

// Handler adapts a Runner to the bridge. Params are a positional array
// whose first element is the script source. The result is the script's
// textual output, or true when the script produced no output. Any failure
// is returned as the result string; the server never sees a protocol error
// from this method.
func Handler(runner Runner) bridge.Handler {
	return func(ctx context.Context, _ json.RawMessage, params json.RawMessage) (json.RawMessage, error) {
		var args []string
		if err := json.Unmarshal(params, &args); err != nil || len(args) == 0 {
			return json.Marshal("execute_george: missing script parameter")
		}

		out, err := runner.Execute(ctx, args[0])
		if err != nil {
			return json.Marshal(err.Error())
		}
		if out == "" {
			return json.Marshal(true)
		}
		return json.Marshal(out)
	}
}
