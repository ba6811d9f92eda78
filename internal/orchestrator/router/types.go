// SPDX-License-Identifier: AGPL-3.0
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package router implements the one-shot routing LLM call (spec.md §4.4):
// render a catalog of routable agents, ask a low-temperature chat client for
// a JSON-schema-constrained RoutingDecision, validate it against the live
// registry, and apply confidence gating.
package router

import "github.com/invopop/jsonschema"

// Decision is the routing outcome, matching spec.md §3's RoutingDecision.
type Decision struct {
	AgentID          string   `json:"agentId"`
	Confidence       float64  `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Reasoning        string   `json:"reasoning,omitempty"`
	AdditionalAgents []string `json:"additionalAgents,omitempty"`
}

// decisionSchemaDoc is generated once from Decision and matches the literal
// schema in spec.md §6 (required agentId/confidence, additionalProperties
// false).
var decisionSchemaDoc = func() *jsonschema.Schema {
	r := &jsonschema.Reflector{AllowAdditionalProperties: false, DoNotReference: true}
	return r.Reflect(&Decision{})
}()

// Schema returns the JSON schema document constraining the routing chat
// client's response format.
func Schema() *jsonschema.Schema { return decisionSchemaDoc }
