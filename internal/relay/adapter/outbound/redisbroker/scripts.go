package redisbroker

import "github.com/redis/go-redis/v9"

// Every script starts with the same liveness check: the record exists and names the caller's session.
// All keys of one transfer share the {id} hash tag so the scripts stay valid on Redis Cluster.

const aliveCheck = `
local meta = redis.call('GET', KEYS[1])
if not meta or not string.find(meta, ARGV[1], 1, true) then
  return -1
end
`

// KEYS: meta, ready. ARGV: marker, ttl ms, events channel.
// Returns 1 when bound, 0 when already bound, -1 when the session is gone.
var signalReadyScript = redis.NewScript(aliveCheck + `
if not redis.call('SET', KEYS[2], '1', 'NX', 'PX', ARGV[2]) then
  return 0
end
redis.call('PUBLISH', ARGV[3], 'ready')
return 1
`)

// KEYS: meta. ARGV: marker, events channel.
var deleteScript = redis.NewScript(aliveCheck + `
redis.call('DEL', KEYS[1])
redis.call('PUBLISH', ARGV[2], 'deleted')
return 1
`)

// KEYS: meta, queue, bytes, interrupt, sealed.
// ARGV: marker, encoded frame, frame size, capacity, ttl ms, sentinel flag, events channel.
// Returns {1} when queued, {0} when full, {-1} when gone, {-2, reason} when interrupted, {-3} when sealed.
var pushScript = redis.NewScript(`
local meta = redis.call('GET', KEYS[1])
if not meta or not string.find(meta, ARGV[1], 1, true) then
  return {-1}
end
local reason = redis.call('GET', KEYS[4])
if reason then
  return {-2, reason}
end
if redis.call('EXISTS', KEYS[5]) == 1 then
  return {-3}
end
local size = tonumber(ARGV[3])
local used = tonumber(redis.call('GET', KEYS[3]) or '0')
if size > 0 and used > 0 and used + size > tonumber(ARGV[4]) then
  return {0}
end
redis.call('LPUSH', KEYS[2], ARGV[2])
redis.call('INCRBY', KEYS[3], size)
if ARGV[6] == '1' then
  redis.call('SET', KEYS[5], '1')
end
for i = 1, 5 do
  if redis.call('EXISTS', KEYS[i]) == 1 then
    redis.call('PEXPIRE', KEYS[i], ARGV[5])
  end
end
redis.call('PUBLISH', ARGV[7], 'push')
return {1}
`)

// KEYS: meta, queue, bytes. ARGV: marker, events channel.
// Returns the encoded frame, 0 when empty, -1 when empty and gone.
// Queued frames stay readable after the record is deleted so the receiver can drain a sentinel.
var popScript = redis.NewScript(`
local frame = redis.call('RPOP', KEYS[2])
if frame then
  if string.byte(frame, 1) == 1 then
    redis.call('DECRBY', KEYS[3], #frame - 5)
  end
  redis.call('PUBLISH', ARGV[2], 'pop')
  return frame
end
local meta = redis.call('GET', KEYS[1])
if not meta or not string.find(meta, ARGV[1], 1, true) then
  return -1
end
return 0
`)

// KEYS: meta, queue, interrupt, sealed. ARGV: marker, reason, encoded sentinel, ttl ms, events channel.
var interruptScript = redis.NewScript(aliveCheck + `
redis.call('SET', KEYS[3], ARGV[2], 'NX', 'PX', ARGV[4])
if redis.call('SET', KEYS[4], '1', 'NX', 'PX', ARGV[4]) then
  redis.call('LPUSH', KEYS[2], ARGV[3])
  redis.call('PEXPIRE', KEYS[2], ARGV[4])
end
redis.call('PUBLISH', ARGV[5], 'interrupt')
return 1
`)

// KEYS: ready. ARGV: events channel.
var closeReadinessScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
redis.call('PUBLISH', ARGV[1], 'closed')
return 1
`)
