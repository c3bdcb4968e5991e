package clients

const USER_AGENT = "ytinsights-client/1.0 (+https://github.com/spacesedan/ytinsights)"
