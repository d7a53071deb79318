package redisstore

import "github.com/redis/go-redis/v9"

// createScript rejects the create if the job hash already exists,
// otherwise writes it and indexes it in the queue sorted set with score
// = the job's created_at in unix seconds (which is now for a job the
// manager has just built). KEYS: [jobKey, queueKey]. ARGV:
// [createdAtUnix, id, field, value, field, value, ...].
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
for i = 3, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i+1])
end
redis.call('ZADD', KEYS[2], tonumber(ARGV[1]), ARGV[2])
return 1
`)

// claimScript pops candidates from the queue sorted set in ascending
// score order, skips stale entries (no longer Queued/Scheduled, or
// already owned), and atomically claims the first eligible one whose
// name passes the allow-list filter (spec.md §4.3 "ClaimNextForWorker").
// KEYS: [queueKey, inprogressKey]. ARGV: [nowUnix, workerID,
// startedAtRFC3339, lastUpdatedAtRFC3339, jobKeyPrefix, allowedCSV].
var claimScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local prefix = ARGV[5]
local allowedCSV = ARGV[6]

local function nameAllowed(name)
  if allowedCSV == '' then
    return true
  end
  for token in string.gmatch(allowedCSV, '([^,]+)') do
    if token == name then
      return true
    end
  end
  return false
end

local candidates = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', now)
for _, id in ipairs(candidates) do
  local jobKey = prefix .. id
  local status = redis.call('HGET', jobKey, 'Status')
  local worker = redis.call('HGET', jobKey, 'WorkerId')
  local name = redis.call('HGET', jobKey, 'Name')

  if not status or (status ~= '100' and status ~= '200') then
    redis.call('ZREM', KEYS[1], id)
  elseif worker and worker ~= '' then
    redis.call('ZREM', KEYS[1], id)
  elseif nameAllowed(name) then
    redis.call('HSET', jobKey, 'Status', '300', 'WorkerId', ARGV[2], 'StartedAt', ARGV[3], 'StartedAtUnix', ARGV[1], 'LastUpdatedAt', ARGV[4])
    redis.call('ZREM', KEYS[1], id)
    redis.call('ZADD', KEYS[2], now, id)
    return redis.call('HGETALL', jobKey)
  end
end

return false
`)

// recoverScript rescues jobs stuck InProgress since before the timeout
// instant: re-queues them if under budget, otherwise fails them
// permanently (spec.md §4.3 "RecoverStuckJobs"). KEYS: [inprogressKey,
// queueKey]. ARGV: [timeoutUnix, nowUnix, nowRFC3339, jobKeyPrefix,
// maxRetriesDefault, errorCode].
var recoverScript = redis.NewScript(`
local timeout = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local nowStr = ARGV[3]
local prefix = ARGV[4]
local defaultMaxRetries = tonumber(ARGV[5])
local errorCode = ARGV[6]

local stuck = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', timeout)
local recovered = 0

for _, id in ipairs(stuck) do
  local jobKey = prefix .. id
  local status = redis.call('HGET', jobKey, 'Status')
  local startedUnix = tonumber(redis.call('HGET', jobKey, 'StartedAtUnix'))

  if status == '300' and startedUnix and startedUnix <= timeout then
    local retryCount = tonumber(redis.call('HGET', jobKey, 'RetryCount') or '0') or 0
    local maxRetriesField = redis.call('HGET', jobKey, 'MaxRetries')
    local maxRetries = tonumber(maxRetriesField)
    if not maxRetries then
      maxRetries = defaultMaxRetries
    end

    if retryCount < maxRetries then
      local newRetry = retryCount + 1
      redis.call('HSET', jobKey, 'Status', '200', 'RetryCount', tostring(newRetry), 'RetryDelayUntil', nowStr, 'LastUpdatedAt', nowStr)
      redis.call('HDEL', jobKey, 'WorkerId', 'StartedAt', 'StartedAtUnix')
      redis.call('ZADD', KEYS[2], now, id)
    else
      local message = 'exceeded maximum retries: retry_count=' .. retryCount .. ' max_retries=' .. maxRetries
      local errJSON = '{"code":"' .. errorCode .. '","message":"' .. message .. '"}'
      redis.call('HSET', jobKey, 'Status', '500', 'Error', errJSON, 'LastUpdatedAt', nowStr, 'CompletedAt', nowStr)
      redis.call('HDEL', jobKey, 'WorkerId', 'StartedAt', 'StartedAtUnix')
    end
    redis.call('ZREM', KEYS[1], id)
    recovered = recovered + 1
  end
end

return recovered
`)

// updateScript overwrites a job's hash fields and repositions it in the
// queue/inprogress sorted sets according to the membership the caller
// computed from the job's new status (spec.md §4.3 "Update writes
// individual fields with a hash-set"). KEYS: [jobKey, queueKey,
// inprogressKey]. ARGV: [membership ("queue"|"inprogress"|"none"),
// score, delCount, delField..., field, value, field, value, ...].
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end

local membership = ARGV[1]
local score = tonumber(ARGV[2])
local delCount = tonumber(ARGV[3])

local idx = 4
for i = 1, delCount do
  redis.call('HDEL', KEYS[1], ARGV[idx])
  idx = idx + 1
end

for i = idx, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i+1])
end

local id = redis.call('HGET', KEYS[1], 'Id')
redis.call('ZREM', KEYS[2], id)
redis.call('ZREM', KEYS[3], id)
if membership == 'queue' then
  redis.call('ZADD', KEYS[2], score, id)
elseif membership == 'inprogress' then
  redis.call('ZADD', KEYS[3], score, id)
end

return 1
`)
