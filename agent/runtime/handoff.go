package runtime

import contractx "github.com/amontero/dialogo/agent/contract"

// InputFilter rewrites the request handed to a handoff target. The session
// pointer must be preserved; filters typically trim tool results or adjust
// the user message.
type InputFilter func(req contractx.AgentRequest) contractx.AgentRequest

type filterKey struct {
	from contractx.AgentName
	to   contractx.AgentName
}

// PassThrough keeps the request unchanged apart from dropping tool results,
// which never survive a control transfer.
func PassThrough(req contractx.AgentRequest) contractx.AgentRequest {
	req.ToolResults = nil
	return req
}
