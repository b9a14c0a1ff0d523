package contracts

// PushMessage is the JSON body the push transport carries: a flat string map.
// See domain/notification for the keys that matter to this process.
type PushMessage map[string]string
