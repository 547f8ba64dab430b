// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const endpointScripts = "/api/scripts"

// Script names a backend maintenance job.
type Script string

const (
	ScriptFetchAll   Script = "fetch-all"
	ScriptImportFix  Script = "import-server-fix"
	ScriptImportForm Script = "import-server-form"
	ScriptImportUser Script = "import-server-user"
)

// ImportScripts are the jobs run together by "import all".
var ImportScripts = []Script{ScriptImportFix, ScriptImportForm, ScriptImportUser}

// ParseScript validates a script name taken from a URL.
func ParseScript(name string) (Script, bool) {
	switch script := Script(name); script {
	case ScriptFetchAll, ScriptImportFix, ScriptImportForm, ScriptImportUser:
		return script, true
	default:
		return "", false
	}
}

/*
RunScript triggers a backend job and returns its raw JSON report.

Description: The backend runs the job synchronously, so the call can take
as long as the client timeout allows. A non-2xx answer carries the job's
error message.

Parameters:
  - ctx: context.Context
  - script: Script

Returns:
  - json.RawMessage: The job report as sent by the backend
  - error
*/
func (client *Client) RunScript(ctx context.Context, script Script) (json.RawMessage, error) {
	endpoint := endpointScripts + "/" + string(script)

	body, err := client.do(ctx, call{
		method:   http.MethodGet,
		endpoint: endpoint,
		segments: []string{endpointScripts, string(script)},
	})
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, endpoint)
	}

	return json.RawMessage(body), nil
}
