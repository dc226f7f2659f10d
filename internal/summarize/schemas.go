package summarize

// ContradictoryReportsKey is the primary summary entry exempt from the
// insight record schema.
const ContradictoryReportsKey = "contradictory reports"

const primarySchema = `{
  "type": "object",
  "properties": {
    "contradictory reports": {}
  },
  "additionalProperties": {
    "type": "object",
    "required": ["confidence level", "excerpts id"]
  }
}`

const secondarySchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["type", "subtype", "content"]
  }
}`
