package sqlinline

const QSelectIntegrationToken = `--sql 3c1f0b7e-92d4-4a6b-b1e5-7d0c2a9f4e61
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql a74e2d19-5b3c-4f80-9e6a-1c8d7b2f0a35
insert into integration_tokens (provider, token, properties, created_at, updated_at)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
