package sqlinline

// Status values in bot_users mirror domain.Status.

const QUpsertBotUser = `--sql 0e9b4c27-6d1a-4f3e-8b52-9a7c1d2e3f40
insert into bot_users (telegram_id, status, created_at, updated_at)
values ($1::bigint, 'new', now(), now())
on conflict (telegram_id) do update set
    updated_at = now()
returning telegram_id, status, dataset_ref, model_ref, created_at, updated_at;
`

const QSelectBotUser = `--sql 5f2d8a61-1c7b-4e94-a3d0-6b8e2f4c9a17
select telegram_id, status, dataset_ref, model_ref, created_at, updated_at
from bot_users
where telegram_id = $1::bigint
limit 1;
`

// QTransitionBotUser is the compare-and-set primitive: the update only
// applies while the stored status still equals $2. Empty reference arguments
// keep the stored value unless $5 asks for references to be cleared.
const QTransitionBotUser = `--sql 8b6e1f3a-4d2c-4a7e-9f15-2c3d4e5f6a7b
update bot_users
set status      = $3::text,
    dataset_ref = case when $5::boolean then '' else coalesce(nullif($4::text, ''), dataset_ref) end,
    model_ref   = case when $5::boolean then '' else coalesce(nullif($6::text, ''), model_ref) end,
    updated_at  = now()
where telegram_id = $1::bigint
  and status = $2::text
returning telegram_id, status, dataset_ref, model_ref, created_at, updated_at;
`

const QResetBotUsersByStatus = `--sql c2a9d7e4-3b1f-4c6d-8e0a-5f7b9c1d3e25
update bot_users
set status     = $2::text,
    updated_at = now()
where status = $1::text
returning telegram_id;
`
