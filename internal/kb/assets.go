package kb

import _ "embed"

//go:embed assets/patterns.yaml
var patternsAsset []byte

//go:embed assets/commands.yaml
var commandsAsset []byte

//go:embed assets/trackers.yaml
var trackersAsset []byte
