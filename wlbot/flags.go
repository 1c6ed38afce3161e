package wlbot

import "github.com/spf13/pflag"

const (
	FLAG_PROVIDER_KEY      = "p_key"
	FLAG_PROVIDER_ENDPOINT = "p_addr"
	FLAG_PROVIDER_NAME     = "p_name"
	FLAG_PROVIDER_MODEL    = "p_model"

	FLAG_SERVER_ADDRESS     = "addr"
	FLAG_SERVER_DEBUG       = "debug"
	FLAG_SERVER_CONFIG_FILE = "config"

	FLAG_KNOWLEDGE_PATH          = "kb_path"
	FLAG_KNOWLEDGE_CACHE_TTL     = "kb_cache_ttl"
	FLAG_KNOWLEDGE_CONTEXT_LIMIT = "kb_context_limit"

	FLAG_OBSERVE_METRIC = "metric"
	FLAG_OBSERVE_TRACE  = "trace"
)

// Defined set of flags for wlbot configuration use.
var FlagSet = pflag.NewFlagSet("Wlbot_Flags", pflag.PanicOnError)

var flagToConfigKeyMap = map[string]string{
	FLAG_PROVIDER_KEY:      "provider.apikey",
	FLAG_PROVIDER_ENDPOINT: "provider.endpoint",
	FLAG_PROVIDER_NAME:     "provider.name",
	FLAG_PROVIDER_MODEL:    "provider.model",

	FLAG_SERVER_ADDRESS: "server.address",
	FLAG_SERVER_DEBUG:   "server.debug",

	FLAG_KNOWLEDGE_PATH:          "knowledge.path",
	FLAG_KNOWLEDGE_CACHE_TTL:     "knowledge.cache_ttl",
	FLAG_KNOWLEDGE_CONTEXT_LIMIT: "knowledge.context_limit",

	FLAG_OBSERVE_METRIC: "observability.metric.prometheus",
	FLAG_OBSERVE_TRACE:  "observability.trace.jaeger",
}

func init() {
	defineFlags()
}

func defineFlags() {
	// server
	FlagSet.String(FLAG_SERVER_ADDRESS, "", "server address")
	FlagSet.Bool(FLAG_SERVER_DEBUG, false, "debug log")
	FlagSet.String(FLAG_SERVER_CONFIG_FILE, "", "path to config file")

	// provider
	FlagSet.String(FLAG_PROVIDER_KEY, "", "provider's api key")
	FlagSet.String(FLAG_PROVIDER_ENDPOINT, "", "provider's endpoint")
	FlagSet.String(FLAG_PROVIDER_NAME, "", "provider's name")
	FlagSet.String(FLAG_PROVIDER_MODEL, "", "provider's model name")

	// knowledge
	FlagSet.String(FLAG_KNOWLEDGE_PATH, "", "path to knowledge database file")
	FlagSet.Int(FLAG_KNOWLEDGE_CACHE_TTL, 0, "context cache ttl in seconds")
	FlagSet.Int(FLAG_KNOWLEDGE_CONTEXT_LIMIT, 0, "max knowledge entries per context")

	// observability
	FlagSet.Bool(FLAG_OBSERVE_METRIC, false, "export metrics to prometheus endpoint")
	FlagSet.Bool(FLAG_OBSERVE_TRACE, false, "export traces to otlp endpoint")
}
